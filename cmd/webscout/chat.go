package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"

	"github.com/probelab/webscout/internal/render"
	"github.com/probelab/webscout/internal/stream"
	"github.com/probelab/webscout/pkg/message"
)

// chatFrame mirrors the gateway's WebSocket envelope.
type chatFrame struct {
	Event     string              `json:"event"`
	SessionID string              `json:"sessionId,omitempty"`
	Data      stream.EventPayload `json:"data"`
}

// chatRequest mirrors the gateway's chat request body.
type chatRequest struct {
	SessionID string            `json:"sessionId,omitempty"`
	Messages  []message.Message `json:"messages"`
}

// approvalAnswer mirrors the gateway's mid-turn approval frame.
type approvalAnswer struct {
	Type     string `json:"type"`
	CallID   string `json:"callId"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive research chat against a running webscout gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, _ := cmd.Flags().GetString("url")
			session, _ := cmd.Flags().GetString("session")
			return runChat(cmd.Context(), url, session)
		},
	}
	cmd.Flags().String("url", "ws://127.0.0.1:8080/ws/chat", "Gateway WebSocket URL")
	cmd.Flags().String("session", "", "Resume an existing session ID")
	return cmd
}

func runChat(ctx context.Context, url, sessionID string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("chat: connecting to %s: %w", url, err)
	}
	// Tool outputs and final results can exceed the default frame limit.
	conn.SetReadLimit(1 << 20)
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	fmt.Println("webscout chat. Ask a research question; /quit exits.")

	var history []message.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		history = append(history, message.NewUserText(line))
		req := chatRequest{SessionID: sessionID, Messages: history}
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return fmt.Errorf("chat: send failed: %w", err)
		}

		assistant, newSession, err := streamTurn(ctx, conn, scanner)
		if err != nil {
			return err
		}
		if newSession != "" {
			sessionID = newSession
		}
		if len(assistant.Parts) > 0 {
			history = append(history, assistant)
		}
	}
}

// streamTurn renders frames until the turn's finish or error event and
// returns the assistant message to carry in the local history. Approval
// requests pause the stream for a yes/no prompt on the terminal.
func streamTurn(ctx context.Context, conn *websocket.Conn, scanner *bufio.Scanner) (message.Message, string, error) {
	renderer := render.NewStreamer(os.Stdout)
	var text strings.Builder
	var sessionID string

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return message.Message{}, sessionID, fmt.Errorf("chat: connection lost: %w", err)
		}

		var frame chatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.SessionID != "" {
			sessionID = frame.SessionID
		}

		renderer.Event(frame.Event, frame.Data)

		switch frame.Event {
		case "approval_requested":
			if err := answerApproval(ctx, conn, scanner, frame.Data); err != nil {
				return message.Message{}, sessionID, err
			}
		case "text":
			text.WriteString(frame.Data.Content)
		case "finish":
			content := text.String()
			if len(frame.Data.Final) > 0 {
				content = string(frame.Data.Final)
			}
			msg := message.Message{Role: message.RoleAssistant}
			if strings.TrimSpace(content) != "" {
				msg.Parts = append(msg.Parts, message.NewTextPart(content))
			}
			return msg, sessionID, nil
		case "error":
			// The turn is over; keep the session usable.
			return message.Message{Role: message.RoleAssistant}, sessionID, nil
		}
	}
}

// answerApproval prompts for a pending tool approval and sends the answer
// back to the gateway. An empty or unreadable answer denies.
func answerApproval(ctx context.Context, conn *websocket.Conn, scanner *bufio.Scanner, p stream.EventPayload) error {
	fmt.Printf("  allow %s? [y/N] ", p.Tool)
	approved := false
	if scanner.Scan() {
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		approved = answer == "y" || answer == "yes"
	}

	data, err := json.Marshal(approvalAnswer{
		Type:     "approval",
		CallID:   p.CallID,
		Approved: approved,
	})
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("chat: approval answer failed: %w", err)
	}
	return nil
}
