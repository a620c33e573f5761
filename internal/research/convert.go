package research

import (
	"encoding/json"

	"github.com/probelab/webscout/internal/agent"
	"github.com/probelab/webscout/internal/provider"
	"github.com/probelab/webscout/pkg/message"
)

// toLLMMessages flattens part-structured messages into the provider wire
// shape. Text and reasoning parts merge into the message content; tool-call
// parts become assistant tool calls; their results become tool-role
// messages that follow the assistant turn.
func toLLMMessages(msgs []message.Message) []provider.LLMMessage {
	var out []provider.LLMMessage

	for _, msg := range msgs {
		var (
			content   string
			toolCalls []provider.ToolCall
			results   []provider.LLMMessage
		)

		for _, part := range msg.Parts {
			switch part.Type {
			case message.PartText:
				if content != "" {
					content += "\n"
				}
				content += part.Content

			case message.PartReasoning:
				// Reasoning is not replayed to the model.

			case message.PartToolCall:
				toolCalls = append(toolCalls, provider.ToolCall{
					ID:        part.CallID,
					Name:      part.ToolName,
					Arguments: part.Input,
				})
				if len(part.Output) > 0 || part.ErrorText != "" {
					result := provider.LLMMessage{
						Role:   provider.MessageRoleTool,
						ToolID: part.CallID,
					}
					if part.ErrorText != "" {
						result.Content = part.ErrorText
						result.IsError = true
					} else {
						result.Content = string(part.Output)
						result.IsError = part.State == message.StateOutputError
					}
					results = append(results, result)
				}
			}
		}

		if content == "" && len(toolCalls) == 0 {
			continue
		}
		out = append(out, provider.LLMMessage{
			Role:      provider.MessageRole(msg.Role),
			Content:   content,
			ToolCalls: toolCalls,
		})
		out = append(out, results...)
	}

	return out
}

// assistantMessage rebuilds a part-structured assistant message from a
// finished run: streamed text, then tool calls with their outcomes.
func assistantMessage(resp agent.Response) message.Message {
	var parts []message.Part

	for _, rec := range resp.ToolCalls {
		part := message.NewToolCallPart(rec.Name, rec.ID, rec.Arguments)
		part.State = message.StateOutputAvailable
		part.Output = json.RawMessage(rec.Output.Content)
		if !json.Valid(part.Output) {
			quoted, _ := json.Marshal(rec.Output.Content)
			part.Output = quoted
		}
		if rec.Output.IsError {
			part.State = message.StateOutputError
			part.ErrorText = rec.Output.Content
			part.Output = nil
		}
		parts = append(parts, part)
	}

	if resp.Content != "" {
		parts = append(parts, message.NewTextPart(resp.Content))
	}

	return message.Message{Role: message.RoleAssistant, Parts: parts}
}
