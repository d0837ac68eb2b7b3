package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

const runColumns = `id, seq, username, database_id, dry_run, status, watchlist_count, existing_count,
	pending_count, created_count, failed_count, error, started_at, finished_at`

var _ models.Repository[*models.SyncRun] = (*SyncRunRepository)(nil)

// SyncRunRepository implements models.Repository[*models.SyncRun] for the run ledger.
//
// It also stores the per-film items of each run.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a run with the next sequence number. An id is generated when the run has none.
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	run.SetSequence(sequence)

	counts := run.Counts()
	query := `
		INSERT INTO sync_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		sequence,
		run.Username(),
		run.DatabaseID(),
		run.DryRun(),
		string(run.Status()),
		counts.Watchlist,
		counts.Existing,
		counts.Pending,
		counts.Created,
		counts.Failed,
		run.Message(),
		run.StartedAt(),
		nullTime(run.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a run by its sequence number
func (r *SyncRunRepository) GetBySequence(seq int) (*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE seq = ?`
	return r.scanOne(r.db.QueryRow(query, seq))
}

// Latest retrieves the most recent run
func (r *SyncRunRepository) Latest() (*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs ORDER BY seq DESC LIMIT 1`
	return r.scanOne(r.db.QueryRow(query))
}

// Update stores the status, counters and finish time of a run
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	counts := run.Counts()
	query := `
		UPDATE sync_runs
		SET status = ?, watchlist_count = ?, existing_count = ?, pending_count = ?,
			created_count = ?, failed_count = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		string(run.Status()),
		counts.Watchlist,
		counts.Existing,
		counts.Pending,
		counts.Created,
		counts.Failed,
		run.Message(),
		nullTime(run.FinishedAt()),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, run.ID())
	}

	return nil
}

// Delete removes a run and, through the foreign key, its items
func (r *SyncRunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sync_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}

	return nil
}

// List retrieves runs newest first.
//
// Supported criteria: "username" (string), "status" (string), "limit" (int).
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE 1 = 1`
	args := []any{}

	if username, ok := criteria["username"].(string); ok && username != "" {
		query += " AND username = ?"
		args = append(args, username)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY seq DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// AddItem stores the outcome for one film of a run
func (r *SyncRunRepository) AddItem(item *models.SyncRunItem) error {
	if item.ID() == "" {
		item.SetID(shared.GenerateID())
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	genres, err := encodeList(item.Genres())
	if err != nil {
		return err
	}
	services, err := encodeList(item.Services())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sync_run_items (id, run_id, slug, title, genres, services, page_id, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		item.ID(),
		item.RunID(),
		item.Slug(),
		item.Title(),
		genres,
		services,
		item.PageID(),
		string(item.Status()),
		item.Message(),
		item.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run item: %w", err)
	}

	return nil
}

// Items retrieves the items of a run in the order they were recorded
func (r *SyncRunRepository) Items(runID string) ([]*models.SyncRunItem, error) {
	query := `
		SELECT id, run_id, slug, title, genres, services, page_id, status, error, created_at
		FROM sync_run_items
		WHERE run_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run items: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncRunItem
	for rows.Next() {
		var (
			id, itemRunID, slug, title string
			genres, services           string
			pageID, status, errMsg     string
			createdAt                  time.Time
		)
		if err := rows.Scan(&id, &itemRunID, &slug, &title, &genres, &services, &pageID, &status, &errMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run item: %w", err)
		}

		g, err := decodeList(genres)
		if err != nil {
			return nil, err
		}
		s, err := decodeList(services)
		if err != nil {
			return nil, err
		}

		items = append(items, models.RestoreSyncRunItem(id, itemRunID, slug, title, g, s, pageID,
			models.ItemStatus(status), errMsg, createdAt))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOne scans a single row into a [models.SyncRun]
func (r *SyncRunRepository) scanOne(row *sql.Row) (*models.SyncRun, error) {
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	return run, err
}

func scanRun(row rowScanner) (*models.SyncRun, error) {
	var (
		id         string
		sequence   int
		username   string
		databaseID string
		dryRun     bool
		status     string
		counts     models.RunCounts
		errMsg     string
		startedAt  time.Time
		finishedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &username, &databaseID, &dryRun, &status,
		&counts.Watchlist, &counts.Existing, &counts.Pending, &counts.Created, &counts.Failed,
		&errMsg, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	return models.RestoreSyncRun(id, sequence, username, databaseID, dryRun, models.RunStatus(status),
		counts, errMsg, startedAt, finishedAt.Time), nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return out, nil
}
