package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/probelab/webscout/internal/research"
	"github.com/probelab/webscout/internal/stream"
)

// handleChat runs one research turn and streams it back as server-sent
// events. The request body is a research.ChatRequest; the session ID for
// the turn is echoed in the X-Session-Id header before the stream starts.
func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.research == nil {
			// No credential means no model and no tool work at all.
			writeError(w, http.StatusBadRequest, "no model provider configured")
			return
		}

		var req research.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
			return
		}

		// Validation failures must be rejected before any model or tool
		// call happens; research.Run guarantees that ordering.
		turn, err := g.research.Run(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		w.Header().Set("X-Session-Id", turn.SessionID)
		sse, err := stream.NewSSEWriter(w)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			// The loop and the relay goroutine block until the turn is
			// consumed; drain so the turn still gets persisted.
			for range turn.Events {
			}
			return
		}

		for ev := range turn.Events {
			if err := sse.SendEvent(ev); err != nil {
				// Client went away. The request context is cancelled on
				// disconnect, which stops the loop; drain the rest so
				// the turn still gets persisted.
				g.logger.Debug("chat client disconnected", "session", turn.SessionID, "error", err)
				for range turn.Events {
				}
				return
			}
		}
	}
}
