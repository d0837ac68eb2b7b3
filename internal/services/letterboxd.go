// Letterboxd scraping implementation of [ListingSource] and [DetailSource]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

const (
	letterboxdBaseURL = "https://letterboxd.com"
	defaultMaxPages   = 100
)

// LetterboxdOptions configures a [LetterboxdService].
type LetterboxdOptions struct {
	BaseURL    string
	Client     *http.Client
	Renderer   Renderer // nil disables service lookups
	PageWaiter Waiter   // waited on before every page request
	MaxPages   int
	Logger     *log.Logger
}

// LetterboxdService scrapes watchlists and film pages.
type LetterboxdService struct {
	baseURL    string
	client     *http.Client
	renderer   Renderer
	pageWaiter Waiter
	maxPages   int
	logger     *log.Logger
}

// NewLetterboxdService creates a scraper from opts, filling in defaults.
func NewLetterboxdService(opts LetterboxdOptions) *LetterboxdService {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = letterboxdBaseURL
	}
	client := opts.Client
	if client == nil {
		client = NewScrapeClient("", nil, 0)
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &LetterboxdService{
		baseURL:    baseURL,
		client:     client,
		renderer:   opts.Renderer,
		pageWaiter: opts.PageWaiter,
		maxPages:   maxPages,
		logger:     shared.WithLogger(logger, "component", "letterboxd"),
	}
}

// ProfileWatchlistURL returns the first watchlist page for username.
func (s *LetterboxdService) ProfileWatchlistURL(username string) string {
	return fmt.Sprintf("%s/%s/watchlist/", s.baseURL, url.PathEscape(strings.TrimSpace(username)))
}

// FilmURL returns the detail page for slug.
func (s *LetterboxdService) FilmURL(slug string) string {
	return fmt.Sprintf("%s/film/%s/", s.baseURL, url.PathEscape(slug))
}

// watchlistPageURL returns profileURL for page 1 and profileURL/page/n/ after that.
func watchlistPageURL(profileURL string, page int) string {
	if page <= 1 {
		return profileURL
	}
	return fmt.Sprintf("%s/page/%d/", strings.TrimRight(profileURL, "/"), page)
}

// FetchWatchlist implements [ListingSource].
//
// Pagination stops at the first page without poster containers. Posters without a
// slug are skipped quietly; posters with a slug but no title are skipped with a warning.
func (s *LetterboxdService) FetchWatchlist(ctx context.Context, profileURL string) (*models.WatchlistCollection, error) {
	collection := models.NewWatchlistCollection()

	for page := 1; page <= s.maxPages; page++ {
		if s.pageWaiter != nil {
			if err := s.pageWaiter.Wait(ctx); err != nil {
				return models.NewWatchlistCollection(), err
			}
		}

		pageURL := watchlistPageURL(profileURL, page)
		body, err := s.get(ctx, pageURL)
		if err != nil {
			s.logFailure("watchlist page fetch failed", pageURL, err)
			return models.NewWatchlistCollection(), err
		}

		items, err := ParseWatchlistPage(body)
		if err != nil {
			s.logger.Error("watchlist page parse failed", "url", pageURL, "err", err)
			return models.NewWatchlistCollection(), err
		}
		if len(items) == 0 {
			s.logger.Debug("reached end of watchlist", "page", page)
			return collection, nil
		}

		for _, item := range items {
			if item.Slug == "" {
				s.logger.Debug("skipping poster without slug", "page", page)
				continue
			}
			if item.Title == "" {
				s.logger.Warn("skipping film without title", "slug", item.Slug, "page", page)
				continue
			}
			entry, err := models.NewWatchlistEntry(item.Slug, item.Title)
			if err != nil {
				s.logger.Warn("skipping invalid film", "slug", item.Slug, "err", err)
				continue
			}
			collection.Put(entry)
		}
		s.logger.Debug("parsed watchlist page", "page", page, "posters", len(items), "total", collection.Len())
	}

	s.logger.Warn("stopped at page limit", "max_pages", s.maxPages)
	return collection, nil
}

// FetchGenres implements [DetailSource].
func (s *LetterboxdService) FetchGenres(ctx context.Context, slug string) ([]string, error) {
	filmURL := s.FilmURL(slug)
	body, err := s.get(ctx, filmURL)
	if err != nil {
		s.logFailure("film page fetch failed", filmURL, err)
		return nil, err
	}
	return ParseGenres(body)
}

// FetchServices implements [DetailSource].
//
// Without a renderer it returns an empty slice.
func (s *LetterboxdService) FetchServices(ctx context.Context, slug string) ([]string, error) {
	if s.renderer == nil {
		return []string{}, nil
	}

	filmURL := s.FilmURL(slug)
	html, err := s.renderer.Render(ctx, filmURL)
	if err != nil {
		s.logger.Error("film page render failed", "url", filmURL, "err", err)
		return []string{}, err
	}
	return ParseServices(html)
}

func (s *LetterboxdService) get(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := send(s.client, req)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

func (s *LetterboxdService) logFailure(msg, pageURL string, err error) {
	var se *StatusError
	if errors.As(err, &se) {
		s.logger.Error(msg, "url", pageURL, "status", se.StatusCode, "body", se.Body)
		return
	}
	s.logger.Error(msg, "url", pageURL, "err", err)
}
