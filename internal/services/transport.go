package services

import (
	"net/http"
	"time"

	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

const defaultScrapeTimeout = 30 * time.Second

// browserTransport makes page requests look like they come from a desktop browser.
//
// Captured browser headers, User-Agent included, take precedence over the
// configured user agent.
type browserTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   *shared.BrowserHeaders
}

func (t *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	t.headers.Apply(r)
	if r.Header.Get("User-Agent") == "" && t.userAgent != "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	}
	if r.Header.Get("Accept-Language") == "" {
		r.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

// NewScrapeClient builds the HTTP client used for Letterboxd pages.
//
// The client makes a single attempt per request.
func NewScrapeClient(userAgent string, headers *shared.BrowserHeaders, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &browserTransport{
			base: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 20 * time.Second,
				MaxIdleConnsPerHost:   2,
			},
			userAgent: userAgent,
			headers:   headers,
		},
	}
}
