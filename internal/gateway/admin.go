package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/probelab/webscout/internal/report"
	"github.com/probelab/webscout/internal/transcript"
	"github.com/probelab/webscout/pkg/message"
)

// handleListSessions returns all stored sessions, most recent first.
func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.store == nil {
			writeJSON(w, []transcript.SessionInfo{})
			return
		}

		sessions, err := g.store.Sessions(r.Context())
		if err != nil {
			g.logger.Error("session listing failed", "error", err)
			http.Error(w, "session listing failed", http.StatusInternalServerError)
			return
		}
		if sessions == nil {
			sessions = []transcript.SessionInfo{}
		}
		writeJSON(w, sessions)
	}
}

// sessionDetail is the full transcript of one session.
type sessionDetail struct {
	ID       string                   `json:"id"`
	Messages []message.Message        `json:"messages"`
	Result   *report.StructuredResult `json:"result,omitempty"`
}

// handleGetSession returns a session's transcript and stored result.
func (g *Gateway) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" || g.store == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		msgs, err := g.store.Messages(r.Context(), id)
		if err != nil {
			g.logger.Error("transcript read failed", "session", id, "error", err)
			http.Error(w, "transcript read failed", http.StatusInternalServerError)
			return
		}
		if len(msgs) == 0 {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		detail := sessionDetail{ID: id, Messages: msgs}
		if result, ok, err := g.store.Result(r.Context(), id); err == nil && ok {
			detail.Result = &result
		}
		writeJSON(w, detail)
	}
}

// handleDeleteSession deletes a session by its ID.
func (g *Gateway) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}

		if g.store == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		if err := g.store.Delete(r.Context(), id); err != nil {
			if errors.Is(err, transcript.ErrSessionNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			g.logger.Error("session delete failed", "session", id, "error", err)
			http.Error(w, "session delete failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
