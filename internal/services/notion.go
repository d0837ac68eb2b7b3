// Notion API implementation of [RecordStore]
//
// Request and response shapes follow https://developers.notion.com/reference
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

const (
	notionBaseURL = "https://api.notion.com"
	notionVersion = "2022-06-28"
	notionTimeout = 30 * time.Second
)

// NotionOptions configures a [NotionService].
type NotionOptions struct {
	APIKey     string
	DatabaseID string
	BaseURL    string
	Version    string
	Properties shared.NotionProperties
	Client     *http.Client // base client wrapped with bearer auth
	Logger     *log.Logger
}

// NotionService reads and writes pages of one Notion database.
type NotionService struct {
	baseURL    string
	version    string
	databaseID string
	props      shared.NotionProperties
	httpClient *http.Client
	logger     *log.Logger
}

type richText struct {
	PlainText string    `json:"plain_text,omitempty"`
	Text      *textBody `json:"text,omitempty"`
}

type textBody struct {
	Content string `json:"content"`
}

type selectOption struct {
	Name string `json:"name"`
}

type titleProperty struct {
	Title []richText `json:"title"`
}

type selectProperty struct {
	Select selectOption `json:"select"`
}

type multiSelectProperty struct {
	MultiSelect []selectOption `json:"multi_select"`
}

// NotionPage is a database row as returned by the query endpoint.
type NotionPage struct {
	ID         string                     `json:"id"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type queryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []NotionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor *string      `json:"next_cursor"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type createPageRequest struct {
	Parent     parent         `json:"parent"`
	Properties map[string]any `json:"properties"`
}

// NewNotionService creates a client authenticated with the integration token in opts.
func NewNotionService(ctx context.Context, opts NotionOptions) (*NotionService, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	databaseID := strings.TrimSpace(opts.DatabaseID)
	if apiKey == "" || databaseID == "" {
		return nil, fmt.Errorf("%w: notion api key and database id are required", shared.ErrMissingCredentials)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = notionBaseURL
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = notionVersion
	}
	props := opts.Properties
	if props.Title == "" {
		props.Title = "Name"
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	if opts.Client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.Client)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})

	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = notionTimeout

	return &NotionService{
		baseURL:    baseURL,
		version:    version,
		databaseID: databaseID,
		props:      props,
		httpClient: httpClient,
		logger:     shared.WithLogger(logger, "component", "notion"),
	}, nil
}

// doRequest sends a JSON request to the Notion API and decodes the response into result.
func (s *NotionService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", s.version)

	resp, err := send(s.httpClient, req)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// QueryPage fetches one page of database rows starting at cursor.
func (s *NotionService) QueryPage(ctx context.Context, cursor string) ([]NotionPage, string, bool, error) {
	endpoint := fmt.Sprintf("/v1/databases/%s/query", url.PathEscape(s.databaseID))

	var resp queryResponse
	if err := s.doRequest(ctx, http.MethodPost, endpoint, queryRequest{StartCursor: cursor}, &resp); err != nil {
		return nil, "", false, err
	}

	next := ""
	if resp.NextCursor != nil {
		next = *resp.NextCursor
	}
	return resp.Results, next, resp.HasMore && next != "", nil
}

// ExistingTitles implements [RecordStore].
//
// Rows without a title are skipped. Any failure discards what was read so far.
func (s *NotionService) ExistingTitles(ctx context.Context) ([]string, error) {
	titles := []string{}
	cursor := ""
	for page := 1; ; page++ {
		rows, next, more, err := s.QueryPage(ctx, cursor)
		if err != nil {
			s.logFailure("database query failed", page, err)
			return []string{}, err
		}

		for _, row := range rows {
			if title, ok := s.PageTitle(row); ok {
				titles = append(titles, title)
			}
		}
		s.logger.Debug("read database page", "page", page, "rows", len(rows), "titles", len(titles))

		if !more {
			return titles, nil
		}
		cursor = next
	}
}

// PageTitle reads the first plain-text fragment of the title property.
func (s *NotionService) PageTitle(p NotionPage) (string, bool) {
	raw, ok := p.Properties[s.props.Title]
	if !ok {
		return "", false
	}
	var prop titleProperty
	if err := json.Unmarshal(raw, &prop); err != nil || len(prop.Title) == 0 {
		return "", false
	}
	if prop.Title[0].PlainText == "" {
		return "", false
	}
	return prop.Title[0].PlainText, true
}

// Properties maps rec onto the configured database columns.
//
// Columns with an empty configured name are left out, as is the source column
// when rec has no sources.
func (s *NotionService) Properties(rec *models.RemoteRecord) map[string]any {
	props := map[string]any{
		s.props.Title: titleProperty{Title: []richText{{Text: &textBody{Content: rec.Title}}}},
	}
	if s.props.Type != "" {
		props[s.props.Type] = selectProperty{Select: selectOption{Name: rec.Type}}
	}
	if s.props.Category != "" {
		props[s.props.Category] = multiSelectProperty{MultiSelect: options(rec.Categories)}
	}
	if s.props.Source != "" && len(rec.Sources) > 0 {
		props[s.props.Source] = multiSelectProperty{MultiSelect: options(rec.Sources)}
	}
	return props
}

func options(names []string) []selectOption {
	out := make([]selectOption, 0, len(names))
	for _, n := range names {
		// multi-select option names may not contain commas
		out = append(out, selectOption{Name: strings.ReplaceAll(n, ",", "")})
	}
	return out
}

// CreateRecord implements [RecordStore].
func (s *NotionService) CreateRecord(ctx context.Context, rec *models.RemoteRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: nil record", shared.ErrInvalidRecord)
	}

	body := createPageRequest{
		Parent:     parent{DatabaseID: s.databaseID},
		Properties: s.Properties(rec),
	}

	var created NotionPage
	if err := s.doRequest(ctx, http.MethodPost, "/v1/pages", body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *NotionService) logFailure(msg string, page int, err error) {
	var se *StatusError
	if errors.As(err, &se) {
		s.logger.Error(msg, "page", page, "url", se.URL, "status", se.StatusCode, "body", se.Body)
		return
	}
	s.logger.Error(msg, "page", page, "err", err)
}
