// Shared request plumbing for the Letterboxd and Notion clients
package services

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

const (
	maxResponseBytes = 10 << 20
	bodyExcerptBytes = 512
)

// StatusError reports a non-2xx response with enough context to diagnose it from the log.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap lets callers match [shared.ErrUnexpectedStatus].
func (e *StatusError) Unwrap() error { return shared.ErrUnexpectedStatus }

// APIResponse is a fully read 2xx response.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// send performs req once and reads the body.
//
// Transport failures wrap [shared.ErrAPIRequest]; non-2xx statuses return a [*StatusError].
func send(client *http.Client, req *http.Request) (*APIResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response from %s: %w", shared.ErrAPIRequest, req.URL.Redacted(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       shared.Truncate(strings.Join(strings.Fields(string(body)), " "), bodyExcerptBytes),
		}
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}
