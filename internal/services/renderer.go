package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

const defaultRenderTimeout = 45 * time.Second

// ChromeOptions configures a [ChromeRenderer].
type ChromeOptions struct {
	ExecPath  string // empty lets chromedp find Chrome on PATH
	UserAgent string
	Headers   *shared.BrowserHeaders
	Settle    time.Duration
	Timeout   time.Duration
	Logger    *log.Logger
}

// ChromeRenderer renders pages in headless Chrome.
//
// Every call launches its own browser and tears it down before returning.
type ChromeRenderer struct {
	execPath  string
	userAgent string
	headers   *shared.BrowserHeaders
	settle    time.Duration
	timeout   time.Duration
	logger    *log.Logger
}

// NewChromeRenderer creates a renderer from opts.
func NewChromeRenderer(opts ChromeOptions) *ChromeRenderer {
	settle := opts.Settle
	if settle < 0 {
		settle = 0
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	userAgent := opts.UserAgent
	if ua := opts.Headers.UserAgent(); ua != "" {
		userAgent = ua
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &ChromeRenderer{
		execPath:  opts.ExecPath,
		userAgent: userAgent,
		headers:   opts.Headers,
		settle:    settle,
		timeout:   timeout,
		logger:    shared.WithLogger(logger, "component", "chrome"),
	}
}

func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.userAgent))
	}
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	return opts
}

func (r *ChromeRenderer) actions(pageURL string, html *string) []chromedp.Action {
	var actions []chromedp.Action
	if extra := r.headers.Replayable(); len(extra) > 0 {
		headers := make(network.Headers, len(extra))
		for k, v := range extra {
			if k == "User-Agent" {
				continue
			}
			headers[k] = v
		}
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	return append(actions,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", html, chromedp.ByQuery),
	)
}

// Render implements [Renderer].
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(r.logger.Debugf))
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.timeout)
	defer cancelRun()

	start := time.Now()
	var html string
	if err := chromedp.Run(runCtx, r.actions(pageURL, &html)...); err != nil {
		return "", fmt.Errorf("%w: %s: %w", shared.ErrBrowserRender, pageURL, err)
	}

	r.logger.Debug("rendered page", "url", pageURL, "bytes", len(html), "elapsed", time.Since(start).Round(time.Millisecond))
	return html, nil
}
