// Package transcript provides storage for chat sessions: the message
// parts exchanged during a research run and the final structured result.
package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/probelab/webscout/internal/report"
	"github.com/probelab/webscout/pkg/message"
)

// ErrSessionNotFound is returned when a session ID is unknown.
var ErrSessionNotFound = errors.New("transcript: session not found")

// SessionInfo summarizes a stored session for listings.
type SessionInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

// Store persists session transcripts.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds a message to the session's transcript, creating the
	// session on first append. The session title is derived from the
	// first user message.
	Append(ctx context.Context, sessionID string, msg message.Message) error

	// Messages returns the session's transcript in order.
	Messages(ctx context.Context, sessionID string) ([]message.Message, error)

	// SaveResult stores the final structured result for a session,
	// replacing any previous one.
	SaveResult(ctx context.Context, sessionID string, result report.StructuredResult) error

	// Result returns the stored result. The boolean reports whether a
	// result has been saved for the session.
	Result(ctx context.Context, sessionID string) (report.StructuredResult, bool, error)

	// Sessions lists stored sessions, most recently updated first.
	Sessions(ctx context.Context) ([]SessionInfo, error)

	// Delete removes a session's transcript and result.
	Delete(ctx context.Context, sessionID string) error

	// PruneOlderThan deletes sessions not updated within maxAge and
	// returns how many were removed.
	PruneOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Title derives a session title from the first user message text,
// truncated at a word boundary.
func Title(msg message.Message) string {
	const maxTitle = 80
	text := msg.Text()
	if len(text) <= maxTitle {
		return text
	}
	cut := maxTitle
	for cut > 0 && text[cut] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = maxTitle
	}
	return text[:cut]
}
