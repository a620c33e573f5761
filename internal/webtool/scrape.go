// Package webtool implements the built-in web tools the agent can call:
// scrapeWebsite and searchWeb. Both wrap the optional webdata adapter and
// never let a failure escape: adapter errors, bad input, and a missing
// credential all come back as data-shaped results the model can read.
package webtool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/probelab/webscout/internal/tool"
	"github.com/probelab/webscout/internal/webdata"
)

// ScrapeToolName is the registry name of the page scraping tool.
const ScrapeToolName = "scrapeWebsite"

const scrapeDescription = "Scrape a single web page and return its content as markdown. " +
	"Use this when you already know the URL of the page you need to read."

const scrapeSchema = `{
  "type": "object",
  "properties": {
    "url": {
      "type": "string",
      "description": "The full URL of the page to scrape, including scheme."
    }
  },
  "required": ["url"]
}`

// ScrapeTool fetches one page through the webdata adapter.
// A nil client degrades to a placeholder payload instead of failing.
type ScrapeTool struct {
	client *webdata.Client
	logger *slog.Logger
}

// NewScrapeTool creates a ScrapeTool. client may be nil.
func NewScrapeTool(client *webdata.Client, logger *slog.Logger) *ScrapeTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapeTool{client: client, logger: logger}
}

// Name implements tool.Tool.
func (t *ScrapeTool) Name() string { return ScrapeToolName }

// Description implements tool.Tool.
func (t *ScrapeTool) Description() string { return scrapeDescription }

// Schema implements tool.Tool.
func (t *ScrapeTool) Schema() json.RawMessage { return json.RawMessage(scrapeSchema) }

// ApprovalPolicy implements tool.Tool. Scraping is read-only.
func (t *ScrapeTool) ApprovalPolicy() tool.ApprovalLevel { return tool.ApprovalAllow }

type scrapeArgs struct {
	URL string `json:"url"`
}

type scrapePayload struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Note    string `json:"note,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Execute implements tool.Tool.
func (t *ScrapeTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	var in scrapeArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return marshalOutput(scrapePayload{Error: "invalid arguments: " + err.Error()}, true)
	}
	if strings.TrimSpace(in.URL) == "" {
		return marshalOutput(scrapePayload{Error: "url is required"}, true)
	}

	if t.client == nil {
		return marshalOutput(scrapePayload{
			URL:  in.URL,
			Note: "Web scraping is not configured: no data provider credential is set. Answer from what you already know and say that live page content was unavailable.",
		}, false)
	}

	res, err := t.client.Scrape(ctx, in.URL)
	if err != nil {
		t.logger.Warn("scrape failed", "url", in.URL, "error", err)
		return marshalOutput(scrapePayload{URL: in.URL, Error: err.Error()}, false)
	}

	return marshalOutput(scrapePayload{
		URL:     res.URL,
		Title:   res.Title,
		Content: renderScrapedContent(res),
	}, false)
}

// renderScrapedContent prefixes the page markdown with a heading derived
// from the page title, falling back to the URL when the title is empty.
func renderScrapedContent(res webdata.ScrapeResult) string {
	heading := strings.TrimSpace(res.Title)
	if heading == "" {
		heading = res.URL
	}
	body := strings.TrimSpace(res.Markdown)
	if body == "" {
		return fmt.Sprintf("# %s\n", heading)
	}
	return fmt.Sprintf("# %s\n\n%s", heading, body)
}

// marshalOutput serializes a payload into a tool.Output. Serialization of
// these fixed shapes cannot realistically fail; the fallback keeps the
// contract of never returning a non-nil error for data problems.
func marshalOutput(v any, isError bool) (tool.Output, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return tool.Errorf("encode result: %v", err), nil
	}
	return tool.Output{Content: string(raw), IsError: isError}, nil
}
