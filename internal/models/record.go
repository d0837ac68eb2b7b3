package models

import (
	"fmt"
	"strings"

	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

// DefaultTypeLabel is the select value written for every record.
const DefaultTypeLabel = "Movie"

// RemoteRecord is the outbound shape of one database page.
type RemoteRecord struct {
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	Categories []string `json:"categories"`
	Sources    []string `json:"sources,omitempty"`
}

// RecordBuilder assembles a [RemoteRecord] and validates it in [RecordBuilder.Build].
//
// The type label and service allow-list are fixed for a run; title, genres and
// services change per entry.
type RecordBuilder struct {
	typeLabel  string
	allowed    map[string]struct{}
	title      string
	categories []string
	services   []string
}

// NewRecordBuilder returns a builder for records of typeLabel whose sources are
// restricted to allowList.
func NewRecordBuilder(typeLabel string, allowList []string) *RecordBuilder {
	allowed := make(map[string]struct{}, len(allowList))
	for _, s := range UniqueStrings(allowList) {
		allowed[s] = struct{}{}
	}
	return &RecordBuilder{typeLabel: strings.TrimSpace(typeLabel), allowed: allowed}
}

// FromEntry returns a copy of b populated from e.
func (b *RecordBuilder) FromEntry(e *WatchlistEntry) *RecordBuilder {
	next := *b
	next.title = e.Title
	next.categories = e.Genres
	next.services = e.Services
	return &next
}

// WithTitle returns a copy of b with the given title.
func (b *RecordBuilder) WithTitle(title string) *RecordBuilder {
	next := *b
	next.title = title
	return &next
}

// WithCategories returns a copy of b with the given genre labels.
func (b *RecordBuilder) WithCategories(categories ...string) *RecordBuilder {
	next := *b
	next.categories = categories
	return &next
}

// WithServices returns a copy of b with the given streaming services.
func (b *RecordBuilder) WithServices(services ...string) *RecordBuilder {
	next := *b
	next.services = services
	return &next
}

// Build validates and returns the record.
//
// Sources holds the services also present in the allow-list, in entry order,
// and is nil when none match.
func (b *RecordBuilder) Build() (*RemoteRecord, error) {
	title := strings.TrimSpace(b.title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrInvalidRecord)
	}
	if b.typeLabel == "" {
		return nil, fmt.Errorf("%w: type label is required", shared.ErrInvalidRecord)
	}

	var sources []string
	for _, s := range UniqueStrings(b.services) {
		if _, ok := b.allowed[s]; ok {
			sources = append(sources, s)
		}
	}

	return &RemoteRecord{
		Title:      title,
		Type:       b.typeLabel,
		Categories: UniqueStrings(b.categories),
		Sources:    sources,
	}, nil
}
