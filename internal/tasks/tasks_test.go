package tasks

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
	tu "github.com/aday913/notion-letterboxd-sync/internal/testing"
)

var allowList = []string{"Hulu", "Netflix", "Disney Plus", "HBO Max", "Apple TV+"}

type fixture struct {
	listing  *tu.FakeListing
	details  *tu.FakeDetails
	store    *tu.FakeStore
	pacer    *tu.FakeWaiter
	recorder *tu.FakeRecorder
}

func newFixture(t *testing.T, pairs ...string) *fixture {
	return &fixture{
		listing:  &tu.FakeListing{Collection: tu.NewWatchlist(t, pairs...)},
		details:  &tu.FakeDetails{Genres: map[string][]string{}, Services: map[string][]string{}},
		store:    &tu.FakeStore{},
		pacer:    &tu.FakeWaiter{},
		recorder: &tu.FakeRecorder{},
	}
}

func (f *fixture) engine() *SyncEngine {
	return NewSyncEngine(EngineOptions{
		Listing:  f.listing,
		Details:  f.details,
		Store:    f.store,
		Builder:  models.NewRecordBuilder(models.DefaultTypeLabel, allowList),
		Pacer:    f.pacer,
		Recorder: f.recorder,
		Logger:   shared.NewLogger(io.Discard),
	})
}

var defaultRun = RunOptions{ProfileURL: "https://letterboxd.com/u/watchlist/", Username: "u", DatabaseID: "db"}

func TestSyncEngine(t *testing.T) {
	t.Run("Missing Dependencies", func(t *testing.T) {
		e := NewSyncEngine(EngineOptions{Logger: shared.NewLogger(io.Discard)})
		if _, err := e.Run(context.Background(), defaultRun, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Already Synced Film Is Not Written", func(t *testing.T) {
		f := newFixture(t, "dune-part-two", "Dune: Part Two")
		f.details.Genres["dune-part-two"] = []string{"Science Fiction", "Adventure"}
		f.store.Titles = []string{"Dune: Part Two"}

		result, err := f.engine().Run(context.Background(), defaultRun, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.store.Created) != 0 {
			t.Errorf("expected zero writes, got %d", len(f.store.Created))
		}
		if result.Counts.Existing != 1 || result.Counts.Pending != 0 {
			t.Errorf("unexpected counts %+v", result.Counts)
		}
		if result.Run.Status() != models.RunSucceeded {
			t.Errorf("status = %s", result.Run.Status())
		}
	})

	t.Run("Sources Are Limited To Allow List", func(t *testing.T) {
		f := newFixture(t, "past-lives", "Past Lives")
		f.details.Genres["past-lives"] = []string{"Drama", "Romance"}
		f.details.Services["past-lives"] = []string{"Netflix", "Kanopy"}

		result, err := f.engine().Run(context.Background(), defaultRun, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.store.Created) != 1 {
			t.Fatalf("expected 1 write, got %d", len(f.store.Created))
		}

		rec := f.store.Created[0]
		if rec.Title != "Past Lives" || rec.Type != "Movie" {
			t.Errorf("unexpected record %+v", rec)
		}
		if !slices.Equal(rec.Sources, []string{"Netflix"}) {
			t.Errorf("Sources = %v, want [Netflix]", rec.Sources)
		}
		if !slices.Equal(rec.Categories, []string{"Drama", "Romance"}) {
			t.Errorf("Categories = %v", rec.Categories)
		}
		if !slices.Equal(result.Services, []string{"Netflix", "Kanopy"}) {
			t.Errorf("unique services = %v", result.Services)
		}
		if result.Counts.Created != 1 {
			t.Errorf("Created = %d", result.Counts.Created)
		}
	})

	t.Run("Second Run Writes Nothing", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat", "stalker", "Stalker")
		e := f.engine()

		if _, err := e.Run(context.Background(), defaultRun, nil); err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		if len(f.store.Created) != 2 {
			t.Fatalf("expected 2 writes on first run, got %d", len(f.store.Created))
		}

		result, err := e.Run(context.Background(), defaultRun, nil)
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		if len(f.store.Created) != 2 || result.Counts.Created != 0 {
			t.Errorf("second run wrote %d records", result.Counts.Created)
		}
	})

	t.Run("Database Read Failure Treats Everything As New", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat", "stalker", "Stalker")
		f.store.Titles = []string{"Heat"}
		f.store.ExistingErr = errors.New("page 2: HTTP 500")

		result, err := f.engine().Run(context.Background(), defaultRun, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.store.Created) != 2 {
			t.Errorf("expected every film written, got %d", len(f.store.Created))
		}
		if result.ExistingErr == nil {
			t.Error("expected ExistingErr to be set")
		}
		if !errors.Is(result.Err(), shared.ErrPartialFailure) {
			t.Errorf("expected ErrPartialFailure, got %v", result.Err())
		}
		if result.Run.Status() != models.RunPartial {
			t.Errorf("status = %s", result.Run.Status())
		}
	})

	t.Run("Listing Failure Ends Run", func(t *testing.T) {
		f := newFixture(t)
		f.listing.Err = errors.New("HTTP 403")

		result, err := f.engine().Run(context.Background(), defaultRun, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.details.GenreCalls) != 0 || len(f.store.Created) != 0 {
			t.Error("nothing should run after a listing failure")
		}
		if result.ListingErr == nil || result.Run.Status() != models.RunFailed {
			t.Errorf("expected failed run, got %s", result.Run.Status())
		}
	})

	t.Run("Strict Mode Returns Partial Failure", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat", "stalker", "Stalker")
		f.store.CreateErrs = map[string]error{"Heat": errors.New("validation_error")}

		opts := defaultRun
		opts.Strict = true
		result, err := f.engine().Run(context.Background(), opts, nil)
		if !errors.Is(err, shared.ErrPartialFailure) {
			t.Fatalf("expected ErrPartialFailure, got %v", err)
		}
		if result.Counts.Created != 1 || result.Counts.Failed != 1 {
			t.Errorf("unexpected counts %+v", result.Counts)
		}
		if failures := result.WriteFailures(); len(failures) != 1 || failures[0].Slug != "heat" {
			t.Errorf("WriteFailures() = %+v", failures)
		}

		opts.Strict = false
		f.store.Titles = nil
		f.store.Created = nil
		if _, err := f.engine().Run(context.Background(), opts, nil); err != nil {
			t.Errorf("expected no error without strict, got %v", err)
		}
	})

	t.Run("Enrichment Failures Degrade To Empty", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat")
		f.details.GenreErrs = map[string]error{"heat": errors.New("timeout")}
		f.details.ServiceErrs = map[string]error{"heat": shared.ErrBrowserRender}

		result, err := f.engine().Run(context.Background(), RunOptions{Strict: true}, nil)
		if err != nil {
			t.Fatalf("enrichment failures must not fail a strict run: %v", err)
		}
		if len(f.store.Created) != 1 {
			t.Fatalf("expected 1 write, got %d", len(f.store.Created))
		}
		rec := f.store.Created[0]
		if len(rec.Categories) != 0 || rec.Sources != nil {
			t.Errorf("expected empty tags, got %+v", rec)
		}
		if len(result.Failures) != 2 {
			t.Errorf("expected 2 enrichment failures, got %+v", result.Failures)
		}
	})

	t.Run("Dry Run", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat", "stalker", "Stalker")
		f.store.Titles = []string{"Stalker"}

		opts := defaultRun
		opts.DryRun = true
		result, err := f.engine().Run(context.Background(), opts, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.store.Created) != 0 {
			t.Errorf("dry run wrote %d records", len(f.store.Created))
		}
		if len(result.Records) != 1 || result.Records[0].Title != "Heat" {
			t.Errorf("planned records = %+v", result.Records)
		}
		if len(f.recorder.Items) != 1 || f.recorder.Items[0].Status() != models.ItemPlanned {
			t.Errorf("expected one planned ledger item, got %+v", f.recorder.Items)
		}
	})

	t.Run("Skip Services", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat")
		f.details.Services["heat"] = []string{"Netflix"}

		opts := defaultRun
		opts.SkipServices = true
		if _, err := f.engine().Run(context.Background(), opts, nil); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.details.ServiceCalls) != 0 {
			t.Errorf("expected no service lookups, got %v", f.details.ServiceCalls)
		}
	})

	t.Run("Paces Every Film", func(t *testing.T) {
		f := newFixture(t, "a", "A", "b", "B", "c", "C")
		if _, err := f.engine().Run(context.Background(), defaultRun, nil); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if f.pacer.Calls != 3 {
			t.Errorf("expected 3 waits, got %d", f.pacer.Calls)
		}
	})

	t.Run("Cancelled Context Stops Run", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := f.engine().Run(ctx, defaultRun, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(f.store.Created) != 0 {
			t.Error("no records should be written after cancellation")
		}
		if result.Run.Status() != models.RunFailed {
			t.Errorf("status = %s", result.Run.Status())
		}
	})

	t.Run("Ledger", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat", "stalker", "Stalker")
		f.store.CreateErrs = map[string]error{"Stalker": errors.New("HTTP 400")}

		result, err := f.engine().Run(context.Background(), defaultRun, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.recorder.Runs) != 1 || f.recorder.Updates != 1 {
			t.Errorf("expected one run created and finished, got %d/%d", len(f.recorder.Runs), f.recorder.Updates)
		}
		if len(f.recorder.Items) != 2 {
			t.Fatalf("expected 2 ledger items, got %d", len(f.recorder.Items))
		}
		if f.recorder.Items[0].PageID() != "page-Heat" || f.recorder.Items[1].Status() != models.ItemFailed {
			t.Errorf("unexpected items %+v %+v", f.recorder.Items[0], f.recorder.Items[1])
		}
		if result.Run.ID() == "" || f.recorder.Items[0].RunID() != result.Run.ID() {
			t.Error("items should reference the run id")
		}
	})

	t.Run("Ledger Failure Does Not Stop Sync", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat")
		f.recorder.CreateErr = errors.New("disk I/O error")

		if _, err := f.engine().Run(context.Background(), defaultRun, nil); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(f.store.Created) != 1 || len(f.recorder.Items) != 0 {
			t.Errorf("expected sync without ledger, got %d writes and %d items", len(f.store.Created), len(f.recorder.Items))
		}
	})

	t.Run("Progress", func(t *testing.T) {
		f := newFixture(t, "heat", "Heat")
		progress := make(chan ProgressUpdate, 32)

		if _, err := f.engine().Run(context.Background(), defaultRun, progress); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			if len(phases) == 0 || phases[len(phases)-1] != u.Phase {
				phases = append(phases, u.Phase)
			}
		}
		want := []Phase{FetchWatchlist, EnrichEntries, FetchExisting, Compare, CreateRecords}
		if !slices.Equal(phases, want) {
			t.Errorf("phases = %v, want %v", phases, want)
		}
	})
}

func TestSyncEngineEnrich(t *testing.T) {
	t.Run("Tags Films Without Touching The Store", func(t *testing.T) {
		f := newFixture(t, "aftersun", "Aftersun", "heat", "Heat")
		f.details.Genres["aftersun"] = []string{"Drama"}
		f.details.Genres["heat"] = []string{"Crime", "Drama"}
		f.details.Services["heat"] = []string{"Netflix"}
		watchlist := tu.NewWatchlist(t, "aftersun", "Aftersun", "heat", "Heat")

		result, err := f.engine().Enrich(context.Background(), watchlist, defaultRun, nil)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if len(f.listing.Calls) != 0 || len(f.store.Created) != 0 {
			t.Error("expected listing and store to be left alone")
		}
		if !slices.Equal(result.Genres, []string{"Drama", "Crime"}) {
			t.Errorf("genres = %v", result.Genres)
		}
		heat, _ := watchlist.Get("heat")
		if !slices.Equal(heat.Services, []string{"Netflix"}) {
			t.Errorf("heat services = %v", heat.Services)
		}
		if f.pacer.Calls != 2 {
			t.Errorf("expected 2 waits, got %d", f.pacer.Calls)
		}
	})

	t.Run("Requires Detail Source", func(t *testing.T) {
		e := NewSyncEngine(EngineOptions{Logger: shared.NewLogger(io.Discard)})
		if _, err := e.Enrich(context.Background(), nil, defaultRun, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
