package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
	"github.com/aday913/notion-letterboxd-sync/internal/tasks"
)

const (
	labelWidth   = 12
	cellMaxWidth = 40
	timeLayout   = "2006-01-02 15:04"
)

func (p *Palette) line(b *strings.Builder, label string, value any) {
	fmt.Fprintf(b, "%s%v\n", p.label.Render(label), value)
}

// Progress renders one engine update as a single line.
func (p *Palette) Progress(u tasks.ProgressUpdate) string {
	return fmt.Sprintf("%s %s", p.Help(u.Phase.String()), u.Message)
}

// Summary renders the outcome of a sync run.
func (p *Palette) Summary(result *tasks.SyncResult, dryRun bool) string {
	var b strings.Builder
	if result == nil {
		return p.Err("No result available") + "\n"
	}

	switch {
	case result.ListingErr != nil:
		b.WriteString(p.Title(p.Err("✗ Could not read the watchlist")))
	case result.Err() != nil:
		b.WriteString(p.Title(p.Warn("! Sync finished with errors")))
	case dryRun:
		b.WriteString(p.Title(p.OK("✓ Dry run complete")))
	default:
		b.WriteString(p.Title(p.OK("✓ Sync complete")))
	}
	b.WriteString("\n")

	c := result.Counts
	p.line(&b, "Watchlist", fmt.Sprintf("%d films", c.Watchlist))
	p.line(&b, "In Notion", c.Existing)
	p.line(&b, "New", c.Pending)
	if dryRun {
		p.line(&b, "Planned", len(result.Records))
	} else {
		p.line(&b, "Created", c.Created)
	}
	if c.Failed > 0 {
		p.line(&b, "Failed", p.Err(strconv.Itoa(c.Failed)))
	} else {
		p.line(&b, "Failed", 0)
	}
	p.line(&b, "Genres", len(result.Genres))
	p.line(&b, "Services", len(result.Services))
	if result.Run != nil {
		p.line(&b, "Run", result.Run.ID())
	}

	if result.ListingErr != nil {
		fmt.Fprintf(&b, "\n%s\n", p.Err(result.ListingErr.Error()))
	}
	if result.ExistingErr != nil {
		fmt.Fprintf(&b, "\n%s\n", p.Warn("Existing records could not be read; every film was treated as new:"))
		fmt.Fprintf(&b, "  %s\n", result.ExistingErr)
	}
	if len(result.Failures) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.Warn(fmt.Sprintf("%d lookups or writes failed:", len(result.Failures))))
		for _, f := range result.Failures {
			fmt.Fprintf(&b, "  • %s (%s) [%s]: %v\n", f.Title, f.Slug, f.Stage, f.Err)
		}
	}
	return b.String()
}

func (p *Palette) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.help).
		Headers(headers...)
}

// RunsTable renders stored runs, newest first as given.
func (p *Palette) RunsTable(runs []*models.SyncRun) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		c := r.Counts()
		rows = append(rows, []string{
			strconv.Itoa(r.Sequence()),
			r.StartedAt().Local().Format(timeLayout),
			string(r.Status()),
			yesNo(r.DryRun()),
			strconv.Itoa(c.Watchlist),
			strconv.Itoa(c.Pending),
			strconv.Itoa(c.Created),
			strconv.Itoa(c.Failed),
			formatDuration(r.Duration()),
		})
	}

	t := p.newTable("#", "STARTED", "STATUS", "DRY RUN", "FILMS", "NEW", "CREATED", "FAILED", "TOOK").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			cell := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return cell.Inherit(p.ok)
			case col == 2 && row >= 0 && row < len(runs):
				return cell.Inherit(p.statusStyle(runs[row].Status()))
			}
			return cell
		})
	return t.String()
}

// RunDetail renders the header block of a single stored run.
func (p *Palette) RunDetail(run *models.SyncRun) string {
	var b strings.Builder
	b.WriteString(p.Title(fmt.Sprintf("Run #%d", run.Sequence())))
	b.WriteString("\n")

	c := run.Counts()
	p.line(&b, "ID", run.ID())
	p.line(&b, "User", run.Username())
	p.line(&b, "Database", run.DatabaseID())
	p.line(&b, "Status", p.Status(run.Status()))
	p.line(&b, "Dry run", yesNo(run.DryRun()))
	p.line(&b, "Started", run.StartedAt().Local().Format(time.RFC1123))
	if !run.FinishedAt().IsZero() {
		p.line(&b, "Took", formatDuration(run.Duration()))
	}
	p.line(&b, "Counts", fmt.Sprintf("%d films, %d in Notion, %d new, %d created, %d failed",
		c.Watchlist, c.Existing, c.Pending, c.Created, c.Failed))
	if msg := run.Message(); msg != "" {
		p.line(&b, "Error", p.Err(shared.Truncate(msg, 200)))
	}
	return b.String()
}

// ItemsTable renders the films recorded for a run.
func (p *Palette) ItemsTable(items []*models.SyncRunItem) string {
	if len(items) == 0 {
		return p.Help("No films were written in this run.")
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		detail := item.PageID()
		if item.Status() == models.ItemFailed {
			detail = item.Message()
		}
		rows = append(rows, []string{
			shared.Truncate(item.Title(), cellMaxWidth),
			string(item.Status()),
			shared.Truncate(strings.Join(item.Genres(), ", "), cellMaxWidth),
			shared.Truncate(strings.Join(item.Services(), ", "), cellMaxWidth),
			shared.Truncate(detail, cellMaxWidth),
		})
	}

	t := p.newTable("TITLE", "STATUS", "GENRES", "SERVICES", "PAGE / ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			cell := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return cell.Inherit(p.ok)
			case col == 1 && row >= 0 && row < len(items):
				return cell.Inherit(p.itemStyle(items[row].Status()))
			}
			return cell
		})
	return t.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
