package tasks

import "github.com/aday913/notion-letterboxd-sync/internal/models"

// Reconcile returns the entries of watchlist whose title is not in existing.
//
// Matching is exact string equality on the title. Every entry carrying a matched
// title is dropped. The input collection is not modified.
func Reconcile(watchlist *models.WatchlistCollection, existing []string) *models.WatchlistCollection {
	if watchlist == nil {
		return models.NewWatchlistCollection()
	}

	pending := watchlist.Clone()
	index := watchlist.TitleIndex()
	for _, title := range existing {
		for _, slug := range index[title] {
			pending.Delete(slug)
		}
	}
	return pending
}
