package repositories

import (
	"errors"
	"slices"
	"testing"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

func newEntry(t *testing.T, slug, title string) *models.WatchlistEntry {
	t.Helper()
	e, err := models.NewWatchlistEntry(slug, title)
	if err != nil {
		t.Fatalf("NewWatchlistEntry() error = %v", err)
	}
	return e
}

func TestSyncRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun("aday913", "db-123", false)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}

		second := models.NewSyncRun("aday913", "db-123", true)
		second.SetID("fixed-id")
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create second run: %v", err)
		}
		if second.ID() != "fixed-id" || second.Sequence() != 2 {
			t.Errorf("expected existing id kept and sequence 2, got %s #%d", second.ID(), second.Sequence())
		}
	})

	t.Run("Create Validation Error", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		if err := repo.Create(models.NewSyncRun("", "db", false)); !errors.Is(err, shared.ErrInvalidRecord) {
			t.Errorf("expected ErrInvalidRecord, got %v", err)
		}
	})

	t.Run("Get And Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun("aday913", "db-123", false)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunRunning || !got.FinishedAt().IsZero() {
			t.Errorf("expected running run without finish time, got %s %v", got.Status(), got.FinishedAt())
		}

		run.Finish(models.RunCounts{Watchlist: 5, Existing: 3, Pending: 2, Created: 1, Failed: 1}, errors.New("HTTP 400"))
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err = repo.GetBySequence(run.Sequence())
		if err != nil {
			t.Fatalf("failed to get run by sequence: %v", err)
		}
		if got.Status() != models.RunPartial {
			t.Errorf("expected partial, got %s", got.Status())
		}
		if got.Counts() != run.Counts() {
			t.Errorf("counts = %+v, want %+v", got.Counts(), run.Counts())
		}
		if got.Message() != "HTTP 400" {
			t.Errorf("message = %q", got.Message())
		}
		if got.FinishedAt().IsZero() || got.Duration() < 0 {
			t.Errorf("expected finish time, got %v", got.FinishedAt())
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("Get() expected ErrRunNotFound, got %v", err)
		}
		if _, err := repo.Latest(); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("Latest() expected ErrRunNotFound, got %v", err)
		}

		ghost := models.NewSyncRun("u", "db", false)
		ghost.SetID("ghost")
		if err := repo.Update(ghost); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("Update() expected ErrRunNotFound, got %v", err)
		}
		if err := repo.Delete("ghost"); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("Delete() expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		for _, user := range []string{"alice", "bob", "alice"} {
			if err := repo.Create(models.NewSyncRun(user, "db", false)); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 || all[0].Sequence() != 3 {
			t.Errorf("expected 3 runs newest first, got %d", len(all))
		}

		alice, _ := repo.List(map[string]any{"username": "alice"})
		if len(alice) != 2 {
			t.Errorf("expected 2 runs for alice, got %d", len(alice))
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 {
			t.Errorf("expected 1 run with limit, got %d", len(limited))
		}

		running, _ := repo.List(map[string]any{"status": string(models.RunRunning)})
		if len(running) != 3 {
			t.Errorf("expected 3 running runs, got %d", len(running))
		}

		latest, err := repo.Latest()
		if err != nil || latest.Sequence() != 3 {
			t.Errorf("Latest() = %v, %v", latest, err)
		}
	})

	t.Run("Items", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun("aday913", "db", false)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		heat := newEntry(t, "heat", "Heat")
		heat.SetGenres([]string{"Crime", "Thriller"})
		heat.SetServices([]string{"Netflix"})
		stalker := newEntry(t, "stalker", "Stalker")

		if err := repo.AddItem(models.NewSyncRunItem(run.ID(), heat, models.ItemCreated, "page-1", nil)); err != nil {
			t.Fatalf("failed to add item: %v", err)
		}
		if err := repo.AddItem(models.NewSyncRunItem(run.ID(), stalker, models.ItemFailed, "", errors.New("HTTP 400"))); err != nil {
			t.Fatalf("failed to add item: %v", err)
		}

		items, err := repo.Items(run.ID())
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[0].Slug() != "heat" || items[0].PageID() != "page-1" {
			t.Errorf("unexpected first item %+v", items[0])
		}
		if !slices.Equal(items[0].Genres(), []string{"Crime", "Thriller"}) || !slices.Equal(items[0].Services(), []string{"Netflix"}) {
			t.Errorf("tags = %v / %v", items[0].Genres(), items[0].Services())
		}
		if items[1].Status() != models.ItemFailed || items[1].Message() != "HTTP 400" || len(items[1].Genres()) != 0 {
			t.Errorf("unexpected second item %+v", items[1])
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if items, _ := repo.Items(run.ID()); len(items) != 0 {
			t.Errorf("expected items removed with run, got %d", len(items))
		}
	})

	t.Run("Item For Unknown Run", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		item := models.NewSyncRunItem("no-such-run", newEntry(t, "heat", "Heat"), models.ItemCreated, "p", nil)
		if err := repo.AddItem(item); err == nil {
			t.Error("expected foreign key error")
		}
	})
}
