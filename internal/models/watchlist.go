package models

import (
	"fmt"
	"strings"

	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

// WatchlistEntry is one film discovered on a watchlist page.
//
// Genres and Services are filled in by enrichment and stay deduplicated.
type WatchlistEntry struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Genres   []string `json:"genres"`
	Services []string `json:"services"`
}

// NewWatchlistEntry creates an entry, rejecting a blank slug or title.
func NewWatchlistEntry(slug, title string) (*WatchlistEntry, error) {
	e := &WatchlistEntry{Slug: strings.TrimSpace(slug), Title: strings.TrimSpace(title)}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks that the entry can be keyed and written.
func (e *WatchlistEntry) Validate() error {
	if e.Slug == "" {
		return fmt.Errorf("%w: watchlist entry slug is required", shared.ErrInvalidRecord)
	}
	if e.Title == "" {
		return fmt.Errorf("%w: watchlist entry %s has no title", shared.ErrInvalidRecord, e.Slug)
	}
	return nil
}

// SetGenres replaces the genre tags.
func (e *WatchlistEntry) SetGenres(genres []string) { e.Genres = UniqueStrings(genres) }

// SetServices replaces the streaming service tags.
func (e *WatchlistEntry) SetServices(services []string) { e.Services = UniqueStrings(services) }

// WatchlistCollection maps slug to entry and remembers discovery order.
type WatchlistCollection struct {
	order   []string
	entries map[string]*WatchlistEntry
}

// NewWatchlistCollection returns an empty collection.
func NewWatchlistCollection() *WatchlistCollection {
	return &WatchlistCollection{entries: make(map[string]*WatchlistEntry)}
}

// Put inserts e, or overwrites the entry with the same slug in place.
//
// Entries that fail [WatchlistEntry.Validate] are rejected.
func (c *WatchlistCollection) Put(e *WatchlistEntry) error {
	if e == nil {
		return fmt.Errorf("%w: nil watchlist entry", shared.ErrInvalidRecord)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if _, ok := c.entries[e.Slug]; !ok {
		c.order = append(c.order, e.Slug)
	}
	c.entries[e.Slug] = e
	return nil
}

// Get returns the entry for slug.
func (c *WatchlistCollection) Get(slug string) (*WatchlistEntry, bool) {
	e, ok := c.entries[slug]
	return e, ok
}

// Delete removes slug and reports whether it was present.
func (c *WatchlistCollection) Delete(slug string) bool {
	if _, ok := c.entries[slug]; !ok {
		return false
	}
	delete(c.entries, slug)
	for i, s := range c.order {
		if s == slug {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries.
func (c *WatchlistCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Slugs returns the slugs in discovery order.
func (c *WatchlistCollection) Slugs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Entries returns the entries in discovery order.
func (c *WatchlistCollection) Entries() []*WatchlistEntry {
	out := make([]*WatchlistEntry, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.entries[slug])
	}
	return out
}

// TitleIndex maps each title to the slugs carrying it, in discovery order.
func (c *WatchlistCollection) TitleIndex() map[string][]string {
	idx := make(map[string][]string, len(c.order))
	for _, slug := range c.order {
		title := c.entries[slug].Title
		idx[title] = append(idx[title], slug)
	}
	return idx
}

// Clone returns a copy whose order and membership can change independently.
// Entries are shared.
func (c *WatchlistCollection) Clone() *WatchlistCollection {
	out := NewWatchlistCollection()
	for _, slug := range c.order {
		out.order = append(out.order, slug)
		out.entries[slug] = c.entries[slug]
	}
	return out
}
