// Package webdata wraps the external scraping/search backend behind a small
// REST client. The client is optional: when no credential is configured the
// tools that depend on it degrade to explanatory placeholders instead of
// failing, so a Client is only ever constructed with a key present.
package webdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
)

// Sentinel errors for adapter operations.
var (
	ErrMissingKey  = errors.New("webdata: api key required")
	ErrBadStatus   = errors.New("webdata: unexpected response status")
	ErrEmptyResult = errors.New("webdata: empty response payload")
)

const (
	defaultBaseURL   = "https://api.firecrawl.dev"
	defaultTimeout   = 60 * time.Second
	defaultCacheSize = 256
)

// Config holds the adapter configuration.
type Config struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaultCacheSize
	}
}

// ScrapeResult is one scraped page.
type ScrapeResult struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// SearchParams are the inputs to a web search. Optional filters are sent to
// the backend only when set, preserving the backend's own defaults.
type SearchParams struct {
	Query      string
	Limit      int
	TBS        string
	Location   string
	Categories []string
	Sources    []string
}

// SearchHit is one search result from the backend.
type SearchHit struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Description   string `json:"description"`
	PublishedTime string `json:"publishedTime,omitempty"`
	Category      string `json:"category,omitempty"`
}

// Client talks to the scrape/search backend. Scrape responses are cached by
// URL so repeated lookups within a conversation do not re-fetch the page.
type Client struct {
	cfg       Config
	http      *http.Client
	logger    *slog.Logger
	scrapeLRU *lru.Cache[string, ScrapeResult]
	sanitizer *bluemonday.Policy
}

// New creates a Client. The API key is required; optional-credential
// handling lives with the callers, which skip construction entirely.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingKey
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, ScrapeResult](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("webdata: cache: %w", err)
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		scrapeLRU: cache,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title     string `json:"title"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
}

// Scrape fetches one page as markdown with title metadata.
func (c *Client) Scrape(ctx context.Context, url string) (ScrapeResult, error) {
	if hit, ok := c.scrapeLRU.Get(url); ok {
		return hit, nil
	}

	var out scrapeResponse
	if err := c.post(ctx, "/v1/scrape", scrapeRequest{URL: url, Formats: []string{"markdown"}}, &out); err != nil {
		return ScrapeResult{}, err
	}
	if !out.Success {
		return ScrapeResult{}, fmt.Errorf("webdata: scrape failed: %s", out.Error)
	}

	res := ScrapeResult{
		URL:      out.Data.Metadata.SourceURL,
		Title:    out.Data.Metadata.Title,
		Markdown: out.Data.Markdown,
	}
	if res.URL == "" {
		res.URL = url
	}
	c.scrapeLRU.Add(url, res)
	return res, nil
}

type searchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Web []SearchHit `json:"web"`
	} `json:"data"`
}

// Search runs a web search. Filters absent from params are omitted from the
// request body so the backend applies its own defaults.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]SearchHit, error) {
	body := map[string]any{
		"query": params.Query,
		"limit": params.Limit,
	}
	if params.TBS != "" {
		body["tbs"] = params.TBS
	}
	if params.Location != "" {
		body["location"] = params.Location
	}
	if len(params.Categories) > 0 {
		body["categories"] = params.Categories
	}
	if len(params.Sources) > 0 {
		body["sources"] = params.Sources
	}

	var out searchResponse
	if err := c.post(ctx, "/v1/search", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("webdata: search failed: %s", out.Error)
	}

	hits := out.Data.Web
	for i := range hits {
		hits[i].Description = c.CleanSnippet(hits[i].Description)
	}
	return hits, nil
}

// CleanSnippet strips HTML markup from backend-supplied fragments. Search
// descriptions frequently carry <b> highlighting and stray tags.
func (c *Client) CleanSnippet(s string) string {
	return strings.TrimSpace(c.sanitizer.Sanitize(s))
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("webdata: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("webdata: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webdata: %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %d: %s", ErrBadStatus, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyResult
		}
		return fmt.Errorf("webdata: decode %s: %w", path, err)
	}
	return nil
}
