package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "boxdsync",
		Usage:    "Sync a Letterboxd watchlist into a Notion database",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()

	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Warn("interrupted")
			os.Exit(130)
		case errors.Is(err, shared.ErrMissingConfig):
			logger.Fatal("missing configuration", "err", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
