package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/repositories"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

// HistoryList prints the most recent sync runs.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	repo, closeHistory, err := r.openHistory(config)
	defer closeHistory()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if status := strings.TrimSpace(cmd.String("status")); status != "" {
		criteria["status"] = status
	}
	if user := strings.TrimSpace(cmd.String("user")); user != "" {
		criteria["username"] = user
	}

	runs, err := repo.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run, nil))
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No sync runs recorded yet.\n")
	}
	return r.writePlain("%s\n", r.palette.RunsTable(runs))
}

// HistoryShow prints one run and the films it touched.
//
// The argument is a run number, a run id, or "latest".
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	ref := strings.TrimSpace(cmd.StringArg("run"))
	if ref == "" {
		ref = "latest"
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	repo, closeHistory, err := r.openHistory(config)
	defer closeHistory()
	if err != nil {
		return err
	}

	run, err := findRun(repo, ref)
	if isMissingRun(err) {
		return fmt.Errorf("%w: no run matches %q", shared.ErrRunNotFound, ref)
	}
	if err != nil {
		return err
	}

	items, err := repo.Items(run.ID())
	if err != nil {
		return fmt.Errorf("failed to load run items: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(newRunView(run, items), cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", r.palette.RunDetail(run))
	return r.writePlain("%s\n", r.palette.ItemsTable(items))
}

func findRun(repo *repositories.SyncRunRepository, ref string) (*models.SyncRun, error) {
	if ref == "latest" {
		return repo.Latest()
	}
	if seq, err := strconv.Atoi(ref); err == nil {
		return repo.GetBySequence(seq)
	}
	return repo.Get(ref)
}

func newRunView(run *models.SyncRun, items []*models.SyncRunItem) runView {
	c := run.Counts()
	v := runView{
		ID:         run.ID(),
		Sequence:   run.Sequence(),
		Username:   run.Username(),
		DatabaseID: run.DatabaseID(),
		DryRun:     run.DryRun(),
		Status:     run.Status(),
		Watchlist:  c.Watchlist,
		Existing:   c.Existing,
		Pending:    c.Pending,
		Created:    c.Created,
		Failed:     c.Failed,
		Error:      run.Message(),
		StartedAt:  run.StartedAt().Format(time.RFC3339),
	}
	if !run.FinishedAt().IsZero() {
		v.FinishedAt = run.FinishedAt().Format(time.RFC3339)
	}
	for _, item := range items {
		v.Items = append(v.Items, itemView{
			Slug:     item.Slug(),
			Title:    item.Title(),
			Genres:   item.Genres(),
			Services: item.Services(),
			PageID:   item.PageID(),
			Status:   item.Status(),
			Error:    item.Message(),
		})
	}
	return v
}

// historyCommand reads the local run ledger
func historyCommand(r *Runner) *cli.Command {
	jsonFlags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}

	return &cli.Command{
		Name:  "history",
		Usage: "Inspect previous sync runs",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List recent sync runs",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Maximum number of runs to show",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status (running, succeeded, partial, failed)",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "Only show runs for this Letterboxd user",
					},
				}, jsonFlags...),
				Action: r.HistoryList,
			},
			{
				Name:      "show",
				Usage:     "Show a run and the films it wrote",
				ArgsUsage: "[run number | run id | latest]",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags:  jsonFlags,
				Action: r.HistoryShow,
			},
		},
	}
}
