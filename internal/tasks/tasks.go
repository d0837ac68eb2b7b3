// package tasks implements the watchlist sync run.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/services"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

// Stage names where a per-film failure can happen.
const (
	StageGenres   = "genres"
	StageServices = "services"
	StageBuild    = "build"
	StageCreate   = "create"
)

// RunRecorder persists the ledger of a run. repositories.SyncRunRepository satisfies it.
type RunRecorder interface {
	Create(run *models.SyncRun) error
	Update(run *models.SyncRun) error
	AddItem(item *models.SyncRunItem) error
}

// ItemFailure describes one film that could not be fully processed.
type ItemFailure struct {
	Slug  string
	Title string
	Stage string
	Err   error
}

// SyncResult contains everything a run observed and did.
type SyncResult struct {
	Run         *models.SyncRun
	Watchlist   *models.WatchlistCollection // All films found on the watchlist
	Pending     *models.WatchlistCollection // Films missing from the database
	Records     []*models.RemoteRecord      // Records created, or planned in a dry run
	Failures    []ItemFailure               // Enrichment and write failures
	Genres      []string                    // Unique genres across the watchlist
	Services    []string                    // Unique streaming services across the watchlist
	Counts      models.RunCounts
	ListingErr  error // Watchlist could not be read; nothing else ran
	ExistingErr error // Database could not be read; every film was treated as new
}

// WriteFailures returns the failures that kept a record from being written.
func (r *SyncResult) WriteFailures() []ItemFailure {
	var out []ItemFailure
	for _, f := range r.Failures {
		if f.Stage == StageBuild || f.Stage == StageCreate {
			out = append(out, f)
		}
	}
	return out
}

// Err joins the listing, database and write failures of the run, wrapped in
// [shared.ErrPartialFailure]. It returns nil for a clean run.
func (r *SyncResult) Err() error {
	var errs []error
	if r.ListingErr != nil {
		errs = append(errs, fmt.Errorf("watchlist: %w", r.ListingErr))
	}
	if r.ExistingErr != nil {
		errs = append(errs, fmt.Errorf("existing records: %w", r.ExistingErr))
	}
	for _, f := range r.WriteFailures() {
		errs = append(errs, fmt.Errorf("%s (%s): %w", f.Title, f.Slug, f.Err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", shared.ErrPartialFailure, errors.Join(errs...))
}

// RunOptions describes one invocation of [SyncEngine.Run].
type RunOptions struct {
	ProfileURL   string // First watchlist page
	Username     string
	DatabaseID   string
	DryRun       bool // Build records without writing them
	SkipServices bool // Skip the rendered streaming-service lookup
	Strict       bool // Return an error when any listing, database or write step failed
}

// SyncEngine runs Listing → Enrichment → Reconciliation → Write.
//
// Every step is sequential. Per-film enrichment is paced by the item waiter.
type SyncEngine struct {
	listing  services.ListingSource
	details  services.DetailSource
	store    services.RecordStore
	builder  *models.RecordBuilder
	pacer    services.Waiter
	recorder RunRecorder
	logger   *log.Logger
}

// EngineOptions holds the dependencies of a [SyncEngine]. Pacer and Recorder are optional.
type EngineOptions struct {
	Listing  services.ListingSource
	Details  services.DetailSource
	Store    services.RecordStore
	Builder  *models.RecordBuilder
	Pacer    services.Waiter
	Recorder RunRecorder
	Logger   *log.Logger
}

// NewSyncEngine creates a new SyncEngine with the provided dependencies.
func NewSyncEngine(opts EngineOptions) *SyncEngine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	builder := opts.Builder
	if builder == nil {
		builder = models.NewRecordBuilder(models.DefaultTypeLabel, nil)
	}
	return &SyncEngine{
		listing:  opts.Listing,
		details:  opts.Details,
		store:    opts.Store,
		builder:  builder,
		pacer:    opts.Pacer,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs one sync.
//
// Listing failures end the run early and database read failures fall back to treating every
// film as new; both are reported on the result rather than returned. The returned error is
// non-nil when a dependency is missing, ctx is cancelled, or opts.Strict is set and
// [SyncResult.Err] is non-nil.
func (e *SyncEngine) Run(ctx context.Context, opts RunOptions, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if e.listing == nil || e.details == nil || e.store == nil {
		return nil, fmt.Errorf("%w: sync engine needs a listing source, detail source and record store", shared.ErrServiceUnavailable)
	}

	run := models.NewSyncRun(opts.Username, opts.DatabaseID, opts.DryRun)
	run.SetID(shared.GenerateID())
	recorder := e.startRun(run)
	logger := shared.WithLogger(e.logger, "run_id", run.ID())

	result := &SyncResult{
		Run:       run,
		Watchlist: models.NewWatchlistCollection(),
		Pending:   models.NewWatchlistCollection(),
	}
	finish := func(err error) (*SyncResult, error) {
		runErr := result.Err()
		if err != nil {
			runErr = err
		}
		run.Finish(result.Counts, runErr)
		e.finishRun(recorder, run, logger)
		if err == nil && opts.Strict {
			err = runErr
		}
		return result, err
	}

	e.sendProgress(progress, fetchWatchlistUpdate(opts.ProfileURL))
	watchlist, err := e.listing.FetchWatchlist(ctx, opts.ProfileURL)
	if err != nil {
		if ctx.Err() != nil {
			return finish(ctx.Err())
		}
		logger.Error("could not read watchlist", "url", opts.ProfileURL, "err", err)
		result.ListingErr = err
		return finish(nil)
	}
	result.Watchlist = watchlist
	result.Counts.Watchlist = watchlist.Len()
	e.sendProgress(progress, foundWatchlistUpdate(watchlist))
	logger.Info("fetched watchlist", "films", watchlist.Len())

	if watchlist.Len() == 0 {
		logger.Info("watchlist is empty, nothing to do")
		return finish(nil)
	}

	if err := e.enrich(ctx, logger, watchlist, opts, result, progress); err != nil {
		return finish(err)
	}

	e.sendProgress(progress, fetchExistingUpdate())
	existing, err := e.store.ExistingTitles(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return finish(ctx.Err())
		}
		logger.Error("could not read existing records, treating every film as new", "err", err)
		result.ExistingErr = err
		existing = []string{}
	}

	pending := Reconcile(watchlist, existing)
	result.Pending = pending
	result.Counts.Pending = pending.Len()
	result.Counts.Existing = watchlist.Len() - pending.Len()
	e.sendProgress(progress, compareUpdate(pending.Len(), result.Counts.Existing))
	logger.Info("compared with database", "existing", len(existing), "already_synced", result.Counts.Existing, "new", pending.Len())

	if pending.Len() == 0 {
		logger.Info("database is up to date")
		return finish(nil)
	}

	if err := e.write(ctx, logger, recorder, run, pending, opts, result, progress); err != nil {
		return finish(err)
	}

	logger.Info("sync finished",
		"created", result.Counts.Created,
		"failed", result.Counts.Failed,
		"dry_run", opts.DryRun,
	)
	return finish(nil)
}

// Enrich tags every film of watchlist in place without reading or writing the database.
//
// Only a details source is required. Lookup failures are reported on the result.
func (e *SyncEngine) Enrich(
	ctx context.Context,
	watchlist *models.WatchlistCollection,
	opts RunOptions,
	progress chan<- ProgressUpdate,
) (*SyncResult, error) {
	if e.details == nil {
		return nil, fmt.Errorf("%w: enrichment needs a detail source", shared.ErrServiceUnavailable)
	}
	if watchlist == nil {
		watchlist = models.NewWatchlistCollection()
	}
	result := &SyncResult{Watchlist: watchlist, Pending: models.NewWatchlistCollection()}
	result.Counts.Watchlist = watchlist.Len()
	if err := e.enrich(ctx, e.logger, watchlist, opts, result, progress); err != nil {
		return result, err
	}
	return result, nil
}

// enrich looks up genres and services for every film, pacing each lookup.
// Lookup failures leave the film with empty tags.
func (e *SyncEngine) enrich(
	ctx context.Context,
	logger *log.Logger,
	watchlist *models.WatchlistCollection,
	opts RunOptions,
	result *SyncResult,
	progress chan<- ProgressUpdate,
) error {
	var genres, streaming []string
	entries := watchlist.Entries()

	for i, entry := range entries {
		if e.pacer != nil {
			if err := e.pacer.Wait(ctx); err != nil {
				return err
			}
		}
		e.sendProgress(progress, enrichEntryUpdate(i+1, len(entries), entry))
		filmLogger := shared.WithLogger(logger, "slug", entry.Slug)

		g, err := e.details.FetchGenres(ctx, entry.Slug)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			filmLogger.Warn("genre lookup failed", "err", err)
			result.Failures = append(result.Failures, ItemFailure{Slug: entry.Slug, Title: entry.Title, Stage: StageGenres, Err: err})
			g = []string{}
		}
		entry.SetGenres(g)

		s := []string{}
		if !opts.SkipServices {
			if s, err = e.details.FetchServices(ctx, entry.Slug); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				filmLogger.Warn("service lookup failed", "err", err)
				result.Failures = append(result.Failures, ItemFailure{Slug: entry.Slug, Title: entry.Title, Stage: StageServices, Err: err})
				s = []string{}
			}
		}
		entry.SetServices(s)

		filmLogger.Debug("enriched film", "title", entry.Title, "genres", entry.Genres, "services", entry.Services)
		genres = append(genres, entry.Genres...)
		streaming = append(streaming, entry.Services...)
	}

	result.Genres = models.UniqueStrings(genres)
	result.Services = models.UniqueStrings(streaming)
	logger.Info("unique genres", "count", len(result.Genres), "genres", result.Genres)
	logger.Info("unique streaming services", "count", len(result.Services), "services", result.Services)
	return nil
}

// write builds and creates one record per pending film. Failures are isolated per film.
func (e *SyncEngine) write(
	ctx context.Context,
	logger *log.Logger,
	recorder RunRecorder,
	run *models.SyncRun,
	pending *models.WatchlistCollection,
	opts RunOptions,
	result *SyncResult,
	progress chan<- ProgressUpdate,
) error {
	entries := pending.Entries()
	total := len(entries)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		filmLogger := shared.WithLogger(logger, "slug", entry.Slug)

		rec, err := e.builder.FromEntry(entry).Build()
		if err != nil {
			filmLogger.Error("invalid record", "err", err)
			e.fail(recorder, run, result, entry, StageBuild, err, filmLogger)
			e.sendProgress(progress, recordFailedUpdate(i+1, total, entry.Title, err))
			continue
		}

		if opts.DryRun {
			result.Records = append(result.Records, rec)
			e.record(recorder, models.NewSyncRunItem(run.ID(), entry, models.ItemPlanned, "", nil), filmLogger)
			e.sendProgress(progress, recordCreatedUpdate(i+1, total, rec, true))
			filmLogger.Info("would create record", "title", rec.Title, "categories", rec.Categories, "sources", rec.Sources)
			continue
		}

		pageID, err := e.store.CreateRecord(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			filmLogger.Error("failed to create record", "title", rec.Title, "err", err)
			e.fail(recorder, run, result, entry, StageCreate, err, filmLogger)
			e.sendProgress(progress, recordFailedUpdate(i+1, total, entry.Title, err))
			continue
		}

		result.Records = append(result.Records, rec)
		result.Counts.Created++
		e.record(recorder, models.NewSyncRunItem(run.ID(), entry, models.ItemCreated, pageID, nil), filmLogger)
		e.sendProgress(progress, recordCreatedUpdate(i+1, total, rec, false))
		filmLogger.Info("created record", "title", rec.Title, "page_id", pageID)
	}
	return nil
}

func (e *SyncEngine) fail(
	recorder RunRecorder,
	run *models.SyncRun,
	result *SyncResult,
	entry *models.WatchlistEntry,
	stage string,
	err error,
	logger *log.Logger,
) {
	result.Counts.Failed++
	result.Failures = append(result.Failures, ItemFailure{Slug: entry.Slug, Title: entry.Title, Stage: stage, Err: err})
	e.record(recorder, models.NewSyncRunItem(run.ID(), entry, models.ItemFailed, "", err), logger)
}

// startRun stores the run and returns the recorder to use for the rest of it.
// A ledger that cannot be written is dropped for this run.
func (e *SyncEngine) startRun(run *models.SyncRun) RunRecorder {
	if e.recorder == nil {
		return nil
	}
	if err := e.recorder.Create(run); err != nil {
		e.logger.Warn("run history disabled for this run", "err", err)
		return nil
	}
	return e.recorder
}

func (e *SyncEngine) record(recorder RunRecorder, item *models.SyncRunItem, logger *log.Logger) {
	if recorder == nil {
		return
	}
	if err := recorder.AddItem(item); err != nil {
		logger.Warn("failed to record run item", "err", err)
	}
}

func (e *SyncEngine) finishRun(recorder RunRecorder, run *models.SyncRun, logger *log.Logger) {
	if recorder == nil {
		return
	}
	if err := recorder.Update(run); err != nil {
		logger.Warn("failed to record run result", "err", err)
	}
}
