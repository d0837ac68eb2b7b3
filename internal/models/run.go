package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

// RunStatus is the lifecycle state of a [SyncRun].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// ItemStatus is the outcome recorded for a [SyncRunItem].
type ItemStatus string

const (
	ItemCreated ItemStatus = "created"
	ItemPlanned ItemStatus = "planned" // dry run
	ItemFailed  ItemStatus = "failed"
)

// RunCounts holds the per-stage tallies of a run.
type RunCounts struct {
	Watchlist int
	Existing  int
	Pending   int
	Created   int
	Failed    int
}

// SyncRun is one ledger row describing a sync invocation.
type SyncRun struct {
	id         string
	sequence   int
	username   string
	databaseID string
	dryRun     bool
	status     RunStatus
	counts     RunCounts
	errMsg     string
	startedAt  time.Time
	finishedAt time.Time
}

// NewSyncRun creates a running [SyncRun] started now.
func NewSyncRun(username, databaseID string, dryRun bool) *SyncRun {
	return &SyncRun{
		username:   username,
		databaseID: databaseID,
		dryRun:     dryRun,
		status:     RunRunning,
		startedAt:  time.Now(),
	}
}

// RestoreSyncRun rebuilds a run from stored columns.
func RestoreSyncRun(id string, sequence int, username, databaseID string, dryRun bool, status RunStatus,
	counts RunCounts, errMsg string, startedAt, finishedAt time.Time) *SyncRun {
	return &SyncRun{
		id:         id,
		sequence:   sequence,
		username:   username,
		databaseID: databaseID,
		dryRun:     dryRun,
		status:     status,
		counts:     counts,
		errMsg:     errMsg,
		startedAt:  startedAt,
		finishedAt: finishedAt,
	}
}

func (r *SyncRun) ID() string            { return r.id }
func (r *SyncRun) Sequence() int         { return r.sequence }
func (r *SyncRun) Username() string      { return r.username }
func (r *SyncRun) DatabaseID() string    { return r.databaseID }
func (r *SyncRun) DryRun() bool          { return r.dryRun }
func (r *SyncRun) Status() RunStatus     { return r.status }
func (r *SyncRun) Counts() RunCounts     { return r.counts }
func (r *SyncRun) Message() string       { return r.errMsg }
func (r *SyncRun) StartedAt() time.Time  { return r.startedAt }
func (r *SyncRun) FinishedAt() time.Time { return r.finishedAt }
func (r *SyncRun) CreatedAt() time.Time  { return r.startedAt }

// UpdatedAt returns the finish time, or the start time while running.
func (r *SyncRun) UpdatedAt() time.Time {
	if r.finishedAt.IsZero() {
		return r.startedAt
	}
	return r.finishedAt
}

func (r *SyncRun) SetID(id string) {
	r.id = id
}

func (r *SyncRun) SetSequence(seq int) {
	r.sequence = seq
}

// Finish marks the run complete, deriving the status from counts and err.
func (r *SyncRun) Finish(counts RunCounts, err error) {
	r.counts = counts
	r.finishedAt = time.Now()
	switch {
	case err != nil && counts.Created == 0:
		r.status = RunFailed
	case err != nil || counts.Failed > 0:
		r.status = RunPartial
	default:
		r.status = RunSucceeded
	}
	if err != nil {
		r.errMsg = err.Error()
	}
}

// Duration returns how long the run took, or zero while it is running.
func (r *SyncRun) Duration() time.Duration {
	if r.finishedAt.IsZero() {
		return 0
	}
	return r.finishedAt.Sub(r.startedAt)
}

// Validate checks required fields.
func (r *SyncRun) Validate() error {
	if strings.TrimSpace(r.username) == "" {
		return fmt.Errorf("%w: sync run username is required", shared.ErrInvalidRecord)
	}
	switch r.status {
	case RunRunning, RunSucceeded, RunPartial, RunFailed:
	default:
		return fmt.Errorf("%w: unknown run status %q", shared.ErrInvalidRecord, r.status)
	}
	return nil
}

// SyncRunItem records what happened to one film during a run.
type SyncRunItem struct {
	id        string
	runID     string
	slug      string
	title     string
	genres    []string
	services  []string
	pageID    string
	status    ItemStatus
	errMsg    string
	createdAt time.Time
}

// NewSyncRunItem creates an item for entry with the given outcome.
func NewSyncRunItem(runID string, entry *WatchlistEntry, status ItemStatus, pageID string, err error) *SyncRunItem {
	item := &SyncRunItem{
		runID:     runID,
		slug:      entry.Slug,
		title:     entry.Title,
		genres:    entry.Genres,
		services:  entry.Services,
		pageID:    pageID,
		status:    status,
		createdAt: time.Now(),
	}
	if err != nil {
		item.errMsg = err.Error()
	}
	return item
}

// RestoreSyncRunItem rebuilds an item from stored columns.
func RestoreSyncRunItem(id, runID, slug, title string, genres, services []string, pageID string,
	status ItemStatus, errMsg string, createdAt time.Time) *SyncRunItem {
	return &SyncRunItem{
		id:        id,
		runID:     runID,
		slug:      slug,
		title:     title,
		genres:    genres,
		services:  services,
		pageID:    pageID,
		status:    status,
		errMsg:    errMsg,
		createdAt: createdAt,
	}
}

func (i *SyncRunItem) ID() string           { return i.id }
func (i *SyncRunItem) RunID() string        { return i.runID }
func (i *SyncRunItem) Slug() string         { return i.slug }
func (i *SyncRunItem) Title() string        { return i.title }
func (i *SyncRunItem) Genres() []string     { return i.genres }
func (i *SyncRunItem) Services() []string   { return i.services }
func (i *SyncRunItem) PageID() string       { return i.pageID }
func (i *SyncRunItem) Status() ItemStatus   { return i.status }
func (i *SyncRunItem) Message() string      { return i.errMsg }
func (i *SyncRunItem) CreatedAt() time.Time { return i.createdAt }
func (i *SyncRunItem) UpdatedAt() time.Time { return i.createdAt }

func (i *SyncRunItem) SetID(id string) {
	i.id = id
}

// Validate checks required fields.
func (i *SyncRunItem) Validate() error {
	if i.runID == "" {
		return fmt.Errorf("%w: run item needs a run id", shared.ErrInvalidRecord)
	}
	if i.slug == "" || i.title == "" {
		return fmt.Errorf("%w: run item needs slug and title", shared.ErrInvalidRecord)
	}
	switch i.status {
	case ItemCreated, ItemPlanned, ItemFailed:
	default:
		return fmt.Errorf("%w: unknown item status %q", shared.ErrInvalidRecord, i.status)
	}
	return nil
}
