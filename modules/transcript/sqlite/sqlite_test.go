package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/probelab/webscout/internal/core"
	"github.com/probelab/webscout/internal/report"
	"github.com/probelab/webscout/internal/transcript"
	"github.com/probelab/webscout/pkg/message"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()

	dir := t.TempDir()
	m := &Module{
		config: Config{
			Path:        filepath.Join(dir, "test.db"),
			BusyTimeout: defaultBusyTimeout,
		},
	}
	m.config.defaults()

	ctx := core.NewAppContext(slog.Default(), dir)

	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	t.Cleanup(func() {
		_ = m.Stop(context.Background())
	})

	return m
}

func TestAppendAndMessages(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	calls := []message.Message{
		message.NewUserText("find the acme launch"),
		{Role: message.RoleAssistant, Parts: []message.Part{
			message.NewTextPart("searching now"),
			message.NewToolCallPart("searchWeb", "call-1", []byte(`{"query":"acme launch"}`)),
		}},
	}

	for _, msg := range calls {
		if err := s.Append(ctx, "s1", msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Messages(ctx, "s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Role != message.RoleUser || got[0].Text() != "find the acme launch" {
		t.Errorf("msg[0] = %+v, want user text", got[0])
	}
	if len(got[1].Parts) != 2 {
		t.Fatalf("msg[1] has %d parts, want 2", len(got[1].Parts))
	}
	if got[1].Parts[1].ToolName != "searchWeb" || got[1].Parts[1].CallID != "call-1" {
		t.Errorf("tool part = %+v, want searchWeb/call-1 round-tripped", got[1].Parts[1])
	}
}

func TestSessionTitleFromFirstUserMessage(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	if err := s.Append(ctx, "s1", message.NewUserText("what products did acme launch")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "s1", message.NewUserText("another question")); err != nil {
		t.Fatal(err)
	}

	infos, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d sessions, want 1", len(infos))
	}
	if infos[0].Title != "what products did acme launch" {
		t.Errorf("title = %q, want first user message", infos[0].Title)
	}
	if infos[0].Messages != 2 {
		t.Errorf("messages = %d, want 2", infos[0].Messages)
	}
}

func TestSaveAndGetResult(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	if _, ok, err := s.Result(ctx, "s1"); ok || err != nil {
		t.Fatalf("Result(empty) = ok=%v err=%v, want miss", ok, err)
	}

	res := report.StructuredResult{
		TaskCompleted: true,
		TaskStatus:    report.StatusCompleted,
		Message:       "found it",
		Findings: []report.Finding{{
			Name: "Acme Router X2", Type: "product", Confidence: report.ConfidenceHigh,
			Sources: []report.Source{{Title: "press", URL: "https://acme.example"}},
		}},
	}
	if err := s.SaveResult(ctx, "s1", res); err != nil {
		t.Fatalf("save result: %v", err)
	}

	got, ok, err := s.Result(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Result() = ok=%v err=%v, want hit", ok, err)
	}
	if got.Message != "found it" || len(got.Findings) != 1 {
		t.Errorf("result = %+v, want stored result", got)
	}
	if got.Findings[0].Confidence != report.ConfidenceHigh {
		t.Errorf("confidence = %q, want high", got.Findings[0].Confidence)
	}
}

func TestDeleteSession(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	if err := s.Delete(ctx, "missing"); err != transcript.ErrSessionNotFound {
		t.Errorf("Delete(missing) = %v, want ErrSessionNotFound", err)
	}

	if err := s.Append(ctx, "s1", message.NewUserText("hello there")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveResult(ctx, "s1", report.StructuredResult{
		TaskStatus: report.StatusNotFound,
		Message:    "nothing",
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Cascade removes messages and results.
	msgs, err := s.Messages(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after delete, want 0", len(msgs))
	}
	if _, ok, _ := s.Result(ctx, "s1"); ok {
		t.Error("result survived session delete")
	}
}

func TestPruneOlderThan(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	if err := s.Append(ctx, "old", message.NewUserText("stale")); err != nil {
		t.Fatal(err)
	}
	// Backdate the session.
	if _, err := m.db.ExecContext(ctx,
		"UPDATE sessions SET updated_at = '2000-01-01T00:00:00.000Z' WHERE id = 'old'"); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "fresh", message.NewUserText("current")); err != nil {
		t.Fatal(err)
	}

	pruned, err := s.PruneOlderThan(ctx, time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	infos, _ := s.Sessions(ctx)
	if len(infos) != 1 || infos[0].ID != "fresh" {
		t.Errorf("sessions after prune = %+v, want only fresh", infos)
	}
}

func TestVacuum(t *testing.T) {
	m := newTestModule(t)
	if err := m.store.Vacuum(context.Background()); err != nil {
		t.Fatalf("vacuum: %v", err)
	}
}

func TestConcurrentAppends(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	const writers = 8
	const perWriter = 10

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := s.Append(ctx, "shared", message.NewUserText("concurrent write")); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	msgs, err := s.Messages(ctx, "shared")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != writers*perWriter {
		t.Errorf("got %d messages, want %d", len(msgs), writers*perWriter)
	}
}

func TestModuleConfigDefaults(t *testing.T) {
	t.Parallel()

	var c Config
	c.defaults()
	if !c.walEnabled() {
		t.Error("WAL should default to enabled")
	}
	if c.BusyTimeout != defaultBusyTimeout {
		t.Errorf("BusyTimeout = %d, want %d", c.BusyTimeout, defaultBusyTimeout)
	}
	if c.Retention.MaxAge != defaultRetention {
		t.Errorf("Retention.MaxAge = %v, want %v", c.Retention.MaxAge, defaultRetention)
	}

	c.BusyTimeout = -1
	if err := c.validate(); err == nil {
		t.Error("validate should reject negative busy_timeout")
	}
}
