package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime   time.Duration `json:"uptime_seconds"`
	Model    string        `json:"model,omitempty"`
	Window   int           `json:"context_window,omitempty"`
	Sessions int           `json:"sessions"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Uptime: time.Since(g.startedAt).Truncate(time.Second),
		}

		if g.model != nil {
			resp.Model = g.model.ModelName()
			resp.Window = g.model.ContextWindowSize()
		}

		if g.store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if sessions, err := g.store.Sessions(ctx); err == nil {
				resp.Sessions = len(sessions)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
