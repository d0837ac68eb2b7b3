// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
)

// NewWatchlist builds a collection from slug, title pairs.
func NewWatchlist(t *testing.T, pairs ...string) *models.WatchlistCollection {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatalf("NewWatchlist needs slug/title pairs, got %d values", len(pairs))
	}
	c := models.NewWatchlistCollection()
	for i := 0; i < len(pairs); i += 2 {
		e, err := models.NewWatchlistEntry(pairs[i], pairs[i+1])
		if err != nil {
			t.Fatalf("NewWatchlistEntry(%q, %q): %v", pairs[i], pairs[i+1], err)
		}
		if err := c.Put(e); err != nil {
			t.Fatalf("Put(%q): %v", pairs[i], err)
		}
	}
	return c
}

// FakeListing is a test double for services.ListingSource
type FakeListing struct {
	Collection *models.WatchlistCollection
	Err        error
	Calls      []string
}

func (f *FakeListing) FetchWatchlist(ctx context.Context, profileURL string) (*models.WatchlistCollection, error) {
	f.Calls = append(f.Calls, profileURL)
	if f.Err != nil {
		return models.NewWatchlistCollection(), f.Err
	}
	if f.Collection == nil {
		return models.NewWatchlistCollection(), nil
	}
	return f.Collection, nil
}

// FakeDetails is a test double for services.DetailSource keyed by slug
type FakeDetails struct {
	Genres       map[string][]string
	Services     map[string][]string
	GenreErrs    map[string]error
	ServiceErrs  map[string]error
	GenreCalls   []string
	ServiceCalls []string
}

func (f *FakeDetails) FetchGenres(ctx context.Context, slug string) ([]string, error) {
	f.GenreCalls = append(f.GenreCalls, slug)
	if err := f.GenreErrs[slug]; err != nil {
		return nil, err
	}
	if g, ok := f.Genres[slug]; ok {
		return g, nil
	}
	return []string{}, nil
}

func (f *FakeDetails) FetchServices(ctx context.Context, slug string) ([]string, error) {
	f.ServiceCalls = append(f.ServiceCalls, slug)
	if err := f.ServiceErrs[slug]; err != nil {
		return []string{}, err
	}
	if s, ok := f.Services[slug]; ok {
		return s, nil
	}
	return []string{}, nil
}

// FakeStore is an in-memory services.RecordStore.
//
// Created records are appended to Titles, so a second run sees them as existing.
type FakeStore struct {
	mu          sync.Mutex
	Titles      []string
	ExistingErr error
	CreateErrs  map[string]error // keyed by record title
	Created     []*models.RemoteRecord
}

func (f *FakeStore) ExistingTitles(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ExistingErr != nil {
		return []string{}, f.ExistingErr
	}
	out := make([]string, len(f.Titles))
	copy(out, f.Titles)
	return out, nil
}

func (f *FakeStore) CreateRecord(ctx context.Context, rec *models.RemoteRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CreateErrs[rec.Title]; err != nil {
		return "", err
	}
	f.Created = append(f.Created, rec)
	f.Titles = append(f.Titles, rec.Title)
	return "page-" + rec.Title, nil
}

// FakeWaiter counts waits and never blocks
type FakeWaiter struct {
	Calls int
	Err   error
}

func (f *FakeWaiter) Wait(ctx context.Context) error {
	f.Calls++
	if f.Err != nil {
		return f.Err
	}
	return ctx.Err()
}

// FakeRecorder keeps run ledger writes in memory
type FakeRecorder struct {
	CreateErr error
	Runs      []*models.SyncRun
	Updates   int
	Items     []*models.SyncRunItem
}

func (f *FakeRecorder) Create(run *models.SyncRun) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.Runs = append(f.Runs, run)
	return nil
}

func (f *FakeRecorder) Update(run *models.SyncRun) error {
	f.Updates++
	return nil
}

func (f *FakeRecorder) AddItem(item *models.SyncRunItem) error {
	f.Items = append(f.Items, item)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MustChdir changes into dir and back again when t finishes.
func MustChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() { os.Chdir(prev) })
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
