package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/probelab/webscout/internal/research"
	"github.com/probelab/webscout/internal/stream"
)

const wsRequestTimeout = 30 * time.Second

// wsEvent is the wire frame for one streamed event over WebSocket. The
// event name goes in the envelope; the payload matches the SSE data field.
type wsEvent struct {
	Event     string              `json:"event"`
	SessionID string              `json:"sessionId,omitempty"`
	Data      stream.EventPayload `json:"data"`
}

// wsClientFrame is one inbound client frame. With no type it is a chat
// request; type "approval" answers a pending tool approval mid-turn.
type wsClientFrame struct {
	Type string `json:"type,omitempty"`

	research.ChatRequest

	CallID   string `json:"callId,omitempty"`
	Approved bool   `json:"approved,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

var errWSClientGone = errors.New("gateway: websocket client gone")

// handleChatWS serves the same chat turns as /chat over a WebSocket. Each
// chat frame from the client is one research.ChatRequest; the events of
// the resulting turn stream back as JSON frames, and approval frames
// arriving mid-turn answer pending tool approvals. The connection stays
// open for follow-up turns on the same session.
func (g *Gateway) handleChatWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.research == nil {
			writeError(w, http.StatusBadRequest, "no model provider configured")
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Error("websocket accept failed", "error", err)
			return
		}
		// Message histories grow with every turn; the default frame
		// limit is too small for long sessions.
		conn.SetReadLimit(1 << 20)
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()

		ctx := r.Context()

		// A read pump so the turn loop can take approval answers while
		// it is streaming events out.
		frames := make(chan wsClientFrame)
		go func() {
			defer close(frames)
			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					// Normal closure or client gone.
					return
				}
				var f wsClientFrame
				if err := json.Unmarshal(data, &f); err != nil {
					g.sendWSError(ctx, conn, "", "malformed request: "+err.Error())
					continue
				}
				select {
				case frames <- f:
				case <-ctx.Done():
					return
				}
			}
		}()

		for f := range frames {
			if f.Type == "approval" {
				// No turn in flight; nothing to answer.
				continue
			}

			turn, err := g.research.Run(ctx, f.ChatRequest)
			if err != nil {
				g.sendWSError(ctx, conn, f.SessionID, err.Error())
				continue
			}
			if err := g.streamWSTurn(ctx, conn, turn, frames); err != nil {
				g.logger.Debug("websocket client disconnected", "session", turn.SessionID, "error", err)
				return
			}
		}
	}
}

// streamWSTurn forwards one turn's events to the client, answering
// approval frames as they arrive. On a write failure or client
// disconnect the remaining events are drained so the turn still gets
// persisted.
func (g *Gateway) streamWSTurn(ctx context.Context, conn *websocket.Conn, turn *research.Turn, frames <-chan wsClientFrame) error {
	for {
		select {
		case ev, ok := <-turn.Events:
			if !ok {
				return nil
			}
			frame := wsEvent{
				Event:     string(ev.Type),
				SessionID: turn.SessionID,
				Data:      stream.EncodeEvent(ev),
			}
			if err := g.sendWSFrame(ctx, conn, frame); err != nil {
				for range turn.Events {
				}
				return err
			}

		case f, ok := <-frames:
			if !ok {
				for range turn.Events {
				}
				return errWSClientGone
			}
			if f.Type != "approval" {
				g.sendWSError(ctx, conn, turn.SessionID, "turn in progress")
				continue
			}
			if !turn.Resolve(f.CallID, f.Approved, f.Reason) {
				g.sendWSError(ctx, conn, turn.SessionID, "no pending approval: "+f.CallID)
			}
		}
	}
}

func (g *Gateway) sendWSFrame(ctx context.Context, conn *websocket.Conn, frame wsEvent) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsRequestTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func (g *Gateway) sendWSError(ctx context.Context, conn *websocket.Conn, sessionID, msg string) {
	frame := wsEvent{
		Event:     "error",
		SessionID: sessionID,
		Data:      stream.EventPayload{Error: msg},
	}
	if err := g.sendWSFrame(ctx, conn, frame); err != nil {
		g.logger.Debug("websocket error frame failed", "error", err)
	}
}
