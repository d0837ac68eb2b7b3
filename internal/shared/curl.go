// Utilities for capturing browser request headers from a "Copy as cURL" command.
package shared

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BrowserHeaders holds headers and cookies captured from a real browser session.
// They are replayed on every Letterboxd page request.
type BrowserHeaders struct {
	Headers map[string]string `json:"headers"`
	Cookie  string            `json:"cookie,omitempty"`
}

// headers the HTTP client manages itself
var skippedHeaders = map[string]bool{
	"host":              true,
	"content-length":    true,
	"accept-encoding":   true,
	"connection":        true,
	"transfer-encoding": true,
}

// ParseCurlFile reads a file containing a cURL command and extracts headers.
func ParseCurlFile(path string) (*BrowserHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string and extracts headers.
//
// "-b"/"--cookie" wins over a Cookie header; "-A"/"--user-agent" is stored as User-Agent.
func ParseCurlCommand(cmd string) (*BrowserHeaders, error) {
	args := splitShellWords(strings.ReplaceAll(cmd, "\\\n", " "))

	h := &BrowserHeaders{Headers: make(map[string]string)}
	var headerCookie, flagCookie string

	for i := 0; i < len(args); i++ {
		flag := args[i]
		if i+1 >= len(args) {
			break
		}
		switch flag {
		case "-H", "--header":
			i++
			key, value, ok := strings.Cut(args[i], ":")
			if !ok {
				continue
			}
			key, value = strings.TrimSpace(key), strings.TrimSpace(value)
			if key == "" {
				continue
			}
			if strings.EqualFold(key, "cookie") {
				headerCookie = value
				continue
			}
			h.Headers[key] = value
		case "-b", "--cookie":
			i++
			flagCookie = strings.TrimSpace(args[i])
		case "-A", "--user-agent":
			i++
			h.Headers["User-Agent"] = strings.TrimSpace(args[i])
		}
	}

	h.Cookie = headerCookie
	if flagCookie != "" {
		h.Cookie = flagCookie
	}

	if len(h.Headers) == 0 && h.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidArgument)
	}
	return h, nil
}

// splitShellWords splits s on whitespace, honouring single and double quotes.
func splitShellWords(s string) []string {
	var (
		words   []string
		cur     strings.Builder
		quote   rune
		inWord  bool
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote != 0:
			if r == quote {
				quote = 0
			} else if r == '\\' && quote == '"' {
				escaped = true
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == '\\':
			escaped = true
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words
}

// Replayable returns the headers safe to send again, including the cookie.
func (h *BrowserHeaders) Replayable() map[string]string {
	out := make(map[string]string)
	if h == nil {
		return out
	}
	for key, value := range h.Headers {
		if skippedHeaders[strings.ToLower(key)] {
			continue
		}
		out[key] = value
	}
	if h.Cookie != "" {
		out["Cookie"] = h.Cookie
	}
	return out
}

// Apply sets the replayable headers on req.
func (h *BrowserHeaders) Apply(req *http.Request) {
	for key, value := range h.Replayable() {
		req.Header.Set(key, value)
	}
}

// UserAgent returns the captured User-Agent, if any.
func (h *BrowserHeaders) UserAgent() string {
	if h == nil {
		return ""
	}
	for key, value := range h.Headers {
		if strings.EqualFold(key, "user-agent") {
			return value
		}
	}
	return ""
}

// Keys returns the captured header names in sorted order.
func (h *BrowserHeaders) Keys() []string {
	keys := make([]string, 0, len(h.Headers))
	for k := range h.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the headers as JSON to path with owner-only permissions.
func (h *BrowserHeaders) Save(path string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create headers directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write headers file: %w", err)
	}
	return nil
}

// LoadBrowserHeaders reads headers previously written by [BrowserHeaders.Save].
//
// An empty path yields nil headers and no error.
func LoadBrowserHeaders(path string) (*BrowserHeaders, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read headers file: %w", err)
	}
	var h BrowserHeaders
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: headers file %s: %v", ErrInvalidConfig, path, err)
	}
	if h.Headers == nil {
		h.Headers = make(map[string]string)
	}
	return &h, nil
}
