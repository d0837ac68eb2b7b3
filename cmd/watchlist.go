package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/aday913/notion-letterboxd-sync/internal/formatter"
	"github.com/aday913/notion-letterboxd-sync/internal/tasks"
)

// Watchlist prints the films on the configured watchlist, optionally tagged with
// genres and streaming services. Notion is never contacted.
func (r *Runner) Watchlist(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateScrape(); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	toStdout := output == "" && !cmd.Bool("save")
	skipServices := cmd.Bool("skip-services")
	listing, details, profileURL := r.sources(config, skipServices)

	r.logger.Info("fetching watchlist", "url", profileURL)
	watchlist, err := listing.FetchWatchlist(ctx, profileURL)
	if err != nil {
		return fmt.Errorf("failed to fetch watchlist: %w", err)
	}
	r.logger.Info("fetched watchlist", "films", watchlist.Len())

	if cmd.Bool("enrich") {
		engine := tasks.NewSyncEngine(tasks.EngineOptions{
			Details: details,
			Pacer:   tasks.NewPacer(config.Letterboxd.ItemDelay.Duration),
			Logger:  r.logger,
		})

		// progress lines would corrupt structured output on stdout
		quiet := cmd.Bool("quiet") || (toStdout && format != formatter.Text)
		progress, done := r.streamProgress(quiet)
		result, err := engine.Enrich(ctx, watchlist, tasks.RunOptions{SkipServices: skipServices}, progress)
		close(progress)
		<-done
		if err != nil {
			return fmt.Errorf("failed to enrich watchlist: %w", err)
		}
		if n := len(result.Failures); n > 0 {
			r.logger.Warn("some lookups failed", "count", n)
		}
	}

	heading := fmt.Sprintf("%s's watchlist", config.Letterboxd.Username)
	entries := watchlist.Entries()

	if toStdout {
		return formatter.WriteWatchlist(r.output, format, heading, entries)
	}

	var buf bytes.Buffer
	if err := formatter.WriteWatchlist(&buf, format, heading, entries); err != nil {
		return err
	}
	path, err := formatter.WriteFile(output, "watchlist", format, buf.Bytes())
	if err != nil {
		return err
	}
	r.logger.Info("saved watchlist", "path", path)
	return r.writePlain("✓ Saved %d films to %s\n", len(entries), path)
}

// Existing prints the titles already present in the Notion database.
func (r *Runner) Existing(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateNotion(); err != nil {
		return err
	}

	store, err := r.recordStore(ctx, config)
	if err != nil {
		return err
	}

	titles, err := store.ExistingTitles(ctx)
	if err != nil {
		return fmt.Errorf("failed to read existing records: %w", err)
	}
	r.logger.Info("read existing records", "count", len(titles))

	if cmd.Bool("json") {
		return r.writeJSON(titles, cmd.Bool("pretty"))
	}
	_, err = r.output.Write(formatter.TitlesToText(titles))
	return err
}

func watchlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watchlist",
		Aliases: []string{"wl"},
		Usage:   "Print the Letterboxd watchlist without touching Notion",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "enrich",
				Aliases: []string{"e"},
				Usage:   "Look up genres and streaming services for every film",
			},
			&cli.BoolFlag{
				Name:  "skip-services",
				Usage: "Skip the headless browser streaming service lookup",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, json, csv, markdown)",
				Value:   string(formatter.Text),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write to watchlist.<ext> in the current directory",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Hide progress output",
			},
		},
		Action: r.Watchlist,
	}
}

func existingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "existing",
		Usage: "List titles already in the Notion database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Existing,
	}
}
