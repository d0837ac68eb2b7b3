package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/repositories"
	"github.com/aday913/notion-letterboxd-sync/internal/services"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
	"github.com/aday913/notion-letterboxd-sync/internal/tasks"
	"github.com/aday913/notion-letterboxd-sync/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
	listing    services.ListingSource
	details    services.DetailSource
	store      services.RecordStore
	recorder   tasks.RunRecorder
	openURL    func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Listing, Details, Store and Recorder replace the services built from the
// configuration when set.
type RunnerOpts struct {
	Config     *shared.Config // nil loads --config on first use
	HTTPClient *http.Client   // base client for Notion requests
	Logger     *log.Logger
	Output     io.Writer
	Palette    *ui.Palette
	Listing    services.ListingSource
	Details    services.DetailSource
	Store      services.RecordStore
	Recorder   tasks.RunRecorder
	OpenURL    func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Palette == nil {
		opts.Palette = ui.DefaultPalette
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    opts.Palette,
		listing:    opts.Listing,
		details:    opts.Details,
		store:      opts.Store,
		recorder:   opts.Recorder,
		openURL:    opts.OpenURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, watchlistCommand, existingCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// globalFlags are shared by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Dotenv file loaded before the configuration",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Enable debug logging",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

// loadConfig resolves the configuration of a command: the dotenv file, then the
// TOML file named by --config, then environment overrides.
//
// A config handed to [NewRunner] is used as is.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if cmd.Bool("no-color") {
		r.palette = ui.PlainPalette()
	}
	if r.config != nil {
		return r.config, nil
	}

	if err := shared.LoadDotEnv(cmd.String("env-file")); err != nil {
		r.logger.Warn("ignoring env file", "path", cmd.String("env-file"), "err", err)
	}

	configPath := cmd.String("config")
	config, err := shared.LoadConfigOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}
	config.ApplyEnv(nil)
	if cmd.Bool("debug") {
		config.Log.Level = "debug"
	}

	level, err := shared.ParseLogLevel(config.Log.Level)
	if err != nil {
		return nil, err
	}
	shared.SetLogLevel(r.logger, level)
	r.logger.Debug("loaded configuration", "path", configPath, "user", config.Letterboxd.Username)

	r.config = config
	return config, nil
}

// letterboxd builds the scraper described by config. No network activity happens here.
func (r *Runner) letterboxd(config *shared.Config, skipServices bool) *services.LetterboxdService {
	lb := config.Letterboxd

	headers, err := shared.LoadBrowserHeaders(lb.HeadersPath)
	if err != nil {
		r.logger.Warn("ignoring captured browser headers", "path", lb.HeadersPath, "err", err)
		headers = nil
	}

	var renderer services.Renderer
	if lb.RenderServices && !skipServices {
		renderer = services.NewChromeRenderer(services.ChromeOptions{
			ExecPath:  lb.ChromePath,
			UserAgent: lb.UserAgent,
			Headers:   headers,
			Settle:    lb.RenderSettle.Duration,
			Timeout:   lb.RenderTimeout.Duration,
			Logger:    r.logger,
		})
	}

	return services.NewLetterboxdService(services.LetterboxdOptions{
		BaseURL:    lb.BaseURL,
		Client:     services.NewScrapeClient(lb.UserAgent, headers, 0),
		Renderer:   renderer,
		PageWaiter: tasks.NewPacer(lb.PageDelay.Duration),
		MaxPages:   lb.MaxPages,
		Logger:     r.logger,
	})
}

// sources returns the listing and detail sources plus the first watchlist page to read.
func (r *Runner) sources(config *shared.Config, skipServices bool) (services.ListingSource, services.DetailSource, string) {
	lb := r.letterboxd(config, skipServices)
	profileURL := lb.ProfileWatchlistURL(config.Letterboxd.Username)

	var listing services.ListingSource = lb
	var details services.DetailSource = lb
	if r.listing != nil {
		listing = r.listing
	}
	if r.details != nil {
		details = r.details
	}
	return listing, details, profileURL
}

func (r *Runner) recordStore(ctx context.Context, config *shared.Config) (services.RecordStore, error) {
	if r.store != nil {
		return r.store, nil
	}
	return services.NewNotionService(ctx, services.NotionOptions{
		APIKey:     config.Notion.APIKey,
		DatabaseID: config.Notion.DatabaseID,
		BaseURL:    config.Notion.BaseURL,
		Version:    config.Notion.Version,
		Properties: config.Notion.Properties,
		Client:     r.httpClient,
		Logger:     r.logger,
	})
}

// openHistory opens the run ledger. The returned close function is never nil.
func (r *Runner) openHistory(config *shared.Config) (*repositories.SyncRunRepository, func(), error) {
	db, err := shared.OpenHistory(config.History)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open run history: %w", err)
	}
	return repositories.NewSyncRunRepository(db), func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close run history", "err", err)
		}
	}, nil
}

// runRecorder returns the ledger for a sync, or nil when history is disabled or unavailable.
func (r *Runner) runRecorder(config *shared.Config) (tasks.RunRecorder, func()) {
	if r.recorder != nil {
		return r.recorder, func() {}
	}
	if !config.History.Enabled {
		return nil, func() {}
	}
	repo, closeFn, err := r.openHistory(config)
	if err != nil {
		r.logger.Warn("run history disabled", "err", err)
		return nil, closeFn
	}
	return repo, closeFn
}

// streamProgress prints engine updates until the returned channel is closed.
// done is closed once the last update has been written.
func (r *Runner) streamProgress(quiet bool) (chan tasks.ProgressUpdate, <-chan struct{}) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if !quiet {
				r.writePlain("%s\n", r.palette.Progress(update))
			}
		}
	}()
	return progress, done
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// isMissingRun reports whether err means a history lookup matched nothing.
func isMissingRun(err error) bool {
	return errors.Is(err, shared.ErrRunNotFound)
}

// runView is the JSON shape of a stored run.
type runView struct {
	ID         string           `json:"id"`
	Sequence   int              `json:"sequence"`
	Username   string           `json:"username"`
	DatabaseID string           `json:"database_id"`
	DryRun     bool             `json:"dry_run"`
	Status     models.RunStatus `json:"status"`
	Watchlist  int              `json:"watchlist"`
	Existing   int              `json:"existing"`
	Pending    int              `json:"pending"`
	Created    int              `json:"created"`
	Failed     int              `json:"failed"`
	Error      string           `json:"error,omitempty"`
	StartedAt  string           `json:"started_at"`
	FinishedAt string           `json:"finished_at,omitempty"`
	Items      []itemView       `json:"items,omitempty"`
}

type itemView struct {
	Slug     string            `json:"slug"`
	Title    string            `json:"title"`
	Genres   []string          `json:"genres"`
	Services []string          `json:"services"`
	PageID   string            `json:"page_id,omitempty"`
	Status   models.ItemStatus `json:"status"`
	Error    string            `json:"error,omitempty"`
}
