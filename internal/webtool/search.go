package webtool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/probelab/webscout/internal/tool"
	"github.com/probelab/webscout/internal/webdata"
)

// SearchToolName is the registry name of the web search tool.
const SearchToolName = "searchWeb"

const searchDescription = "Search the web and return ranked results with snippets. " +
	"Use this to discover pages when you do not have a URL yet. Supports optional " +
	"temporal (tbs), geographic (location), category, and source filters."

const searchSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "The search query. At least 3 characters."
    },
    "limit": {
      "type": "integer",
      "description": "Maximum number of results, between 1 and 10. Defaults to 5.",
      "minimum": 1,
      "maximum": 10
    },
    "tbs": {
      "type": "string",
      "description": "Optional time filter, e.g. qdr:d (past day), qdr:w (past week)."
    },
    "location": {
      "type": "string",
      "description": "Optional geographic bias for results, e.g. a country name."
    },
    "categories": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Optional result categories, e.g. github, research."
    },
    "sources": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Optional source kinds, e.g. web, news, images."
    }
  },
  "required": ["query"]
}`

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 10
	maxSnippetLen      = 400
)

// SearchTool runs web searches through the webdata adapter.
// A nil client degrades to an explanatory note instead of failing.
type SearchTool struct {
	client *webdata.Client
	logger *slog.Logger
}

// NewSearchTool creates a SearchTool. client may be nil.
func NewSearchTool(client *webdata.Client, logger *slog.Logger) *SearchTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTool{client: client, logger: logger}
}

// Name implements tool.Tool.
func (t *SearchTool) Name() string { return SearchToolName }

// Description implements tool.Tool.
func (t *SearchTool) Description() string { return searchDescription }

// Schema implements tool.Tool.
func (t *SearchTool) Schema() json.RawMessage { return json.RawMessage(searchSchema) }

// ApprovalPolicy implements tool.Tool. Searching is read-only.
func (t *SearchTool) ApprovalPolicy() tool.ApprovalLevel { return tool.ApprovalAllow }

type searchArgs struct {
	Query      string   `json:"query"`
	Limit      *int     `json:"limit"`
	TBS        string   `json:"tbs"`
	Location   string   `json:"location"`
	Categories []string `json:"categories"`
	Sources    []string `json:"sources"`
}

type searchResultEntry struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet"`
	PublishedTime string `json:"publishedTime,omitempty"`
	Category      string `json:"category,omitempty"`
}

type searchPayload struct {
	Query      string              `json:"query"`
	Limit      int                 `json:"limit"`
	Parameters map[string]any      `json:"parameters"`
	Count      int                 `json:"count"`
	Results    []searchResultEntry `json:"results"`
	Content    string              `json:"content,omitempty"`
	Message    string              `json:"message,omitempty"`
	Note       string              `json:"note,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Execute implements tool.Tool. Input validation happens before any adapter
// call; validation failures come back as error-shaped results.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	var in searchArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return marshalOutput(searchPayload{Results: []searchResultEntry{}, Error: "invalid arguments: " + err.Error()}, true)
	}

	query := strings.TrimSpace(in.Query)
	if utf8.RuneCountInString(query) < 3 {
		return marshalOutput(searchPayload{
			Query:   query,
			Results: []searchResultEntry{},
			Error:   "query must be at least 3 characters",
		}, true)
	}

	limit := defaultSearchLimit
	if in.Limit != nil {
		limit = *in.Limit
	}
	if limit < 1 || limit > maxSearchLimit {
		return marshalOutput(searchPayload{
			Query:   query,
			Limit:   limit,
			Results: []searchResultEntry{},
			Error:   fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit),
		}, true)
	}

	params := searchParameters(in)

	if t.client == nil {
		return marshalOutput(searchPayload{
			Query:      query,
			Limit:      limit,
			Parameters: params,
			Results:    []searchResultEntry{},
			Note:       "Web search is not configured: no data provider credential is set. Answer from what you already know and say that live search was unavailable.",
		}, false)
	}

	hits, err := t.client.Search(ctx, webdata.SearchParams{
		Query:      query,
		Limit:      limit,
		TBS:        in.TBS,
		Location:   in.Location,
		Categories: in.Categories,
		Sources:    in.Sources,
	})
	if err != nil {
		t.logger.Warn("search failed", "query", query, "error", err)
		return marshalOutput(searchPayload{
			Query:      query,
			Limit:      limit,
			Parameters: params,
			Results:    []searchResultEntry{},
			Error:      err.Error(),
		}, false)
	}

	results := make([]searchResultEntry, 0, len(hits))
	for _, h := range hits {
		results = append(results, searchResultEntry{
			Title:         h.Title,
			URL:           h.URL,
			Snippet:       truncateSnippet(h.Description),
			PublishedTime: h.PublishedTime,
			Category:      h.Category,
		})
	}

	payload := searchPayload{
		Query:      query,
		Limit:      limit,
		Parameters: params,
		Count:      len(results),
		Results:    results,
	}
	if len(results) == 0 {
		payload.Message = "No results found for this query."
		payload.Content = fmt.Sprintf("No results found for %q. Try a broader query or different filters.", query)
	} else {
		payload.Content = renderSearchContent(query, results)
	}
	return marshalOutput(payload, false)
}

// searchParameters echoes back the filters that were actually applied, so
// the model can see which knobs shaped the result set.
func searchParameters(in searchArgs) map[string]any {
	params := map[string]any{}
	if in.TBS != "" {
		params["tbs"] = in.TBS
	}
	if in.Location != "" {
		params["location"] = in.Location
	}
	if len(in.Categories) > 0 {
		params["categories"] = in.Categories
	}
	if len(in.Sources) > 0 {
		params["sources"] = in.Sources
	}
	return params
}

func truncateSnippet(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	// Walk back to a rune boundary so the cut never splits a character.
	i := maxSnippetLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i]
}

func renderSearchContent(query string, results []searchResultEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	return b.String()
}
