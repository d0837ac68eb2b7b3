package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/aday913/notion-letterboxd-sync/internal/formatter"
	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/tasks"
)

// Sync adds every watchlist film missing from the Notion database.
//
// Configuration is validated before any request is made.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	opts := tasks.RunOptions{
		Username:     config.Letterboxd.Username,
		DatabaseID:   config.Notion.DatabaseID,
		DryRun:       config.Sync.DryRun || cmd.Bool("dry-run"),
		SkipServices: cmd.Bool("skip-services"),
		Strict:       config.Sync.Strict || cmd.Bool("strict"),
	}

	listing, details, profileURL := r.sources(config, opts.SkipServices)
	opts.ProfileURL = profileURL

	store, err := r.recordStore(ctx, config)
	if err != nil {
		return err
	}

	recorder, closeHistory := r.runRecorder(config)
	defer closeHistory()

	engine := tasks.NewSyncEngine(tasks.EngineOptions{
		Listing:  listing,
		Details:  details,
		Store:    store,
		Builder:  models.NewRecordBuilder(config.Notion.Properties.TypeLabel, config.Sync.AvailableServices),
		Pacer:    tasks.NewPacer(config.Letterboxd.ItemDelay.Duration),
		Recorder: recorder,
		Logger:   r.logger,
	})

	r.logger.Info("starting sync", "user", opts.Username, "dry_run", opts.DryRun, "skip_services", opts.SkipServices)

	progress, done := r.streamProgress(cmd.Bool("quiet"))
	result, err := engine.Run(ctx, opts, progress)
	close(progress)
	<-done

	if result != nil {
		r.writePlainln("%s", r.palette.Summary(result, opts.DryRun))
		if opts.DryRun && len(result.Records) > 0 {
			if werr := formatter.WriteRecords(r.output, format, "Planned records", result.Records); werr != nil {
				return werr
			}
		}
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if cmd.Bool("open") {
		if err := r.openURL(config.NotionDatabaseURL()); err != nil {
			r.logger.Warn("could not open browser", "err", err)
		}
	}
	return nil
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Add new watchlist films to the Notion database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Build records without writing them",
			},
			&cli.BoolFlag{
				Name:  "skip-services",
				Usage: "Skip the headless browser streaming service lookup",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit non-zero when any part of the run failed",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the Notion database in a browser afterwards",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Format for planned records in a dry run (text, json, csv, markdown)",
				Value:   string(formatter.Text),
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Hide progress output",
			},
		},
		Action: r.Sync,
	}
}
