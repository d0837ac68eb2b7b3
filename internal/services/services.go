// package services defines the capability interfaces for the watchlist sync and implements
// them over HTTP for Letterboxd and Notion.
package services

import (
	"context"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
)

// ListingSource produces the watchlist for a profile.
type ListingSource interface {
	// FetchWatchlist walks every watchlist page under profileURL.
	// On failure it returns an empty collection along with the error.
	FetchWatchlist(ctx context.Context, profileURL string) (*models.WatchlistCollection, error)
}

// DetailSource enriches a single film identified by its slug.
type DetailSource interface {
	// FetchGenres returns the genre tags. A page without a genres section yields an empty slice and no error.
	FetchGenres(ctx context.Context, slug string) ([]string, error)

	// FetchServices returns the streaming services that offer a Play option.
	FetchServices(ctx context.Context, slug string) ([]string, error)
}

// RecordStore is the database records are written to.
type RecordStore interface {
	// ExistingTitles lists the title of every record already in the database.
	// On failure it returns an empty slice along with the error.
	ExistingTitles(ctx context.Context) ([]string, error)

	// CreateRecord writes one record and returns the new page id.
	CreateRecord(ctx context.Context, record *models.RemoteRecord) (string, error)
}

// Renderer loads a URL in a browser and returns the DOM after scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Waiter blocks until the next request may be sent.
type Waiter interface {
	Wait(ctx context.Context) error
}

var (
	_ ListingSource = (*LetterboxdService)(nil)
	_ DetailSource  = (*LetterboxdService)(nil)
	_ RecordStore   = (*NotionService)(nil)
	_ Renderer      = (*ChromeRenderer)(nil)
)
