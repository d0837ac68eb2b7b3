// HTML extraction for Letterboxd watchlist and film pages.
//
// Letterboxd markup is undocumented and changes between revisions. Missing
// elements yield empty results, never errors.
package services

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
)

const (
	posterSelector  = "li.poster-container, li.griditem"
	headingSelector = "h1, h2, h3, h4, h5, h6"
	serviceSelector = "p.service"
)

// ListingItem is one poster found on a watchlist page. Either field may be empty.
type ListingItem struct {
	Slug  string
	Title string
}

// ParseWatchlistPage returns every poster container on a watchlist page.
//
// An empty result marks the end of pagination.
func ParseWatchlistPage(html string) ([]ListingItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse watchlist page: %w", err)
	}

	var items []ListingItem
	doc.Find(posterSelector).Each(func(_ int, li *goquery.Selection) {
		items = append(items, ListingItem{
			Slug:  posterSlug(li),
			Title: posterTitle(li),
		})
	})
	return items, nil
}

func posterSlug(li *goquery.Selection) string {
	for _, attr := range []string{"data-film-slug", "data-item-slug"} {
		if v := firstAttr(li, attr); v != "" {
			return v
		}
	}
	return ""
}

func posterTitle(li *goquery.Selection) string {
	if alt, ok := li.Find("img[alt]").First().Attr("alt"); ok {
		if alt = normSpace(alt); alt != "" {
			return alt
		}
	}
	for _, attr := range []string{"data-film-name", "data-item-name"} {
		if v := firstAttr(li, attr); v != "" {
			return v
		}
	}
	return ""
}

// firstAttr reads attr from sel itself or its first descendant carrying it.
func firstAttr(sel *goquery.Selection, attr string) string {
	if v, ok := sel.Attr(attr); ok {
		if v = normSpace(v); v != "" {
			return v
		}
	}
	if v, ok := sel.Find("[" + attr + "]").First().Attr(attr); ok {
		return normSpace(v)
	}
	return ""
}

// ParseGenres returns the tag links following the "Genres" heading of a film page.
//
// The singular "Genre" heading, used for films with one genre, is accepted too.
func ParseGenres(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse film page: %w", err)
	}

	genres := []string{}
	doc.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := strings.ToLower(normSpace(h.Text()))
		if text != "genres" && text != "genre" {
			return true
		}
		h.Next().Find("a").Each(func(_ int, a *goquery.Selection) {
			genres = append(genres, a.Text())
		})
		return false
	})
	return models.UniqueStrings(genres), nil
}

// ParseServices returns the streaming services on a rendered film page that offer "Play".
//
// Services listed only for rent, purchase or information are left out.
func ParseServices(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered film page: %w", err)
	}

	services := []string{}
	doc.Find(serviceSelector).Each(func(_ int, p *goquery.Selection) {
		name := serviceName(p)
		if name == "" || !hasPlayOption(p) {
			return
		}
		services = append(services, name)
	})
	return models.UniqueStrings(services), nil
}

func serviceName(p *goquery.Selection) string {
	for _, sel := range []string{".name", ".title", "a.label"} {
		if v := normSpace(p.Find(sel).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

func hasPlayOption(p *goquery.Selection) bool {
	found := false
	p.Find(".options *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(normSpace(s.Text()), "play") {
			found = true
			return false
		}
		return true
	})
	return found
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
