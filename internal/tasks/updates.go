package tasks

import (
	"fmt"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchWatchlist Phase = iota
	EnrichEntries
	FetchExisting
	Compare
	CreateRecords
)

func (p Phase) String() string {
	switch p {
	case FetchWatchlist:
		return "fetch_watchlist"
	case EnrichEntries:
		return "enrich_entries"
	case FetchExisting:
		return "fetch_existing"
	case Compare:
		return "compare"
	case CreateRecords:
		return "create_records"
	default:
		return ""
	}
}

func fetchWatchlistUpdate(profileURL string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchWatchlist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching watchlist (%s)...", profileURL),
	}
}

func foundWatchlistUpdate(c *models.WatchlistCollection) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchWatchlist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d films on the watchlist", c.Len()),
		Data:    c,
	}
}

func enrichEntryUpdate(step, total int, e *models.WatchlistEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichEntries,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up %s", step, total, e.Title),
	}
}

func fetchExistingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchExisting,
		Step:    1,
		Total:   1,
		Message: "Reading existing records from Notion...",
	}
}

func compareUpdate(pending, existing int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d new films, %d already in Notion", pending, existing),
	}
}

func recordCreatedUpdate(step, total int, rec *models.RemoteRecord, dryRun bool) ProgressUpdate {
	verb := "Created"
	if dryRun {
		verb = "Would create"
	}
	return ProgressUpdate{
		Phase:   CreateRecords,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s %s", step, total, verb, rec.Title),
		Data:    rec,
	}
}

func recordFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateRecords,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}
