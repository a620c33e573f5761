package webtool

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func decodeScrape(t *testing.T, content string) scrapePayload {
	t.Helper()
	var p scrapePayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		t.Fatalf("tool output is not valid JSON: %v\n%s", err, content)
	}
	return p
}

func TestScrape_ContentStartsWithTitleHeading(t *testing.T) {
	t.Parallel()

	client := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"markdown": "Example body text.",
				"metadata": {"title": "Example Domain", "sourceURL": "https://example.com"}
			}
		}`))
	})

	st := NewScrapeTool(client, nil)
	out, err := st.Execute(context.Background(), json.RawMessage(`{"url":"https://example.com"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := decodeScrape(t, out.Content)
	if !strings.HasPrefix(p.Content, "# Example Domain") {
		t.Errorf("content must start with a title heading, got %q", p.Content)
	}
	if p.URL != "https://example.com" || p.Title != "Example Domain" {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestScrape_HeadingFallsBackToURL(t *testing.T) {
	t.Parallel()

	client := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {"markdown": "body", "metadata": {"sourceURL": "https://untitled.example"}}
		}`))
	})

	st := NewScrapeTool(client, nil)
	out, err := st.Execute(context.Background(), json.RawMessage(`{"url":"https://untitled.example"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := decodeScrape(t, out.Content)
	if !strings.HasPrefix(p.Content, "# https://untitled.example") {
		t.Errorf("heading must fall back to URL, got %q", p.Content)
	}
}

func TestScrape_NoAdapterReturnsPlaceholder(t *testing.T) {
	t.Parallel()

	st := NewScrapeTool(nil, nil)
	out, err := st.Execute(context.Background(), json.RawMessage(`{"url":"https://example.com"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.IsError {
		t.Error("missing adapter is a degradation, not an error")
	}
	p := decodeScrape(t, out.Content)
	if p.Note == "" {
		t.Error("expected explanatory note")
	}
}

func TestScrape_MissingURL(t *testing.T) {
	t.Parallel()

	st := NewScrapeTool(nil, nil)
	out, err := st.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsError {
		t.Error("expected error-shaped output")
	}
}

func TestScrape_AdapterFailureBecomesData(t *testing.T) {
	t.Parallel()

	client := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})

	st := NewScrapeTool(client, nil)
	out, err := st.Execute(context.Background(), json.RawMessage(`{"url":"https://blocked.example"}`))
	if err != nil {
		t.Fatalf("tool must not return an error: %v", err)
	}
	p := decodeScrape(t, out.Content)
	if p.Error == "" {
		t.Error("expected error field in payload")
	}
}
