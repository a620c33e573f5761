package agent

import (
	"context"
	"errors"

	"github.com/probelab/webscout/internal/provider"
	"github.com/probelab/webscout/internal/report"
)

// RunStream executes the loop while emitting incremental events on the
// returned channel. The channel is closed after a terminal finish or error
// event. The caller must drain the channel; cancelling ctx unblocks the
// loop if the caller stops reading.
func (l *Loop) RunStream(ctx context.Context, req Request) <-chan StreamEvent {
	events := make(chan StreamEvent, 16)

	go func() {
		defer close(events)

		ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
		defer cancel()

		detector := newLoopDetector(l.config.LoopThreshold)
		tracker := newTokenTracker(l.config.TokenBudget)
		messages := buildInitialMessages(req)

		var allToolCalls []ToolCallRecord
		corrected := false

		emit := func(ev StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(steps int, stopReason StopReason, err error) {
			final := Response{
				Result:     stepLimitResult(allToolCalls),
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Steps:      steps,
				StopReason: stopReason,
			}
			emit(StreamEvent{Type: StreamEventError, Err: err, Final: &final})
		}

		for step := 1; step <= l.config.MaxSteps; step++ {
			if err := ctx.Err(); err != nil {
				stopReason := StopReasonModelError
				if errors.Is(err, context.DeadlineExceeded) {
					stopReason = StopReasonTimeout
				}
				fail(step-1, stopReason, err)
				return
			}
			if tracker.exceeded() {
				fail(step-1, StopReasonTokenBudget, ErrTokenBudgetExceeded)
				return
			}

			if !emit(StreamEvent{Type: StreamEventStep, Step: step}) {
				return
			}

			if step == l.config.MaxSteps-1 {
				messages = append(messages, provider.LLMMessage{
					Role:    provider.MessageRoleSystem,
					Content: wrapUpDirective,
				})
			}

			chunks, err := l.provider.Stream(ctx, l.completionRequest(messages, req.Tools))
			if err != nil {
				fail(step-1, StopReasonModelError, err)
				return
			}

			content, toolCalls, err := l.consumeStream(ctx, chunks, tracker, emit)
			if err != nil {
				fail(step-1, StopReasonModelError, err)
				return
			}
			if tracker.exceeded() {
				fail(step, StopReasonTokenBudget, ErrTokenBudgetExceeded)
				return
			}

			if len(toolCalls) == 0 {
				result, parseErr := report.Parse(content)
				if parseErr == nil {
					final := Response{
						Result:     result,
						Content:    content,
						ToolCalls:  allToolCalls,
						TotalUsage: tracker.total(),
						Steps:      step,
						StopReason: StopReasonComplete,
					}
					emit(StreamEvent{Type: StreamEventFinish, Final: &final})
					return
				}
				if corrected {
					fail(step, StopReasonContractViolation, errors.Join(ErrContractViolation, parseErr))
					return
				}
				corrected = true
				messages = append(messages,
					provider.LLMMessage{Role: provider.MessageRoleAssistant, Content: content},
					provider.LLMMessage{Role: provider.MessageRoleSystem, Content: correctiveMessage(parseErr)},
				)
				continue
			}

			for _, tc := range toolCalls {
				if detector.record(tc.Name, tc.Arguments) {
					fail(step, StopReasonLoopDetected, ErrLoopDetected)
					return
				}
			}

			messages = append(messages, provider.LLMMessage{
				Role:      provider.MessageRoleAssistant,
				Content:   content,
				ToolCalls: toolCalls,
			})

			for _, tc := range toolCalls {
				if !emit(StreamEvent{Type: StreamEventToolStart, Step: step, ToolCall: &ToolCallRecord{
					ID:        tc.ID,
					Name:      tc.Name,
					Arguments: tc.Arguments,
				}}) {
					return
				}
			}

			records := l.executor.Execute(ctx, toolCalls)
			allToolCalls = append(allToolCalls, records...)
			for i := range records {
				if !emit(StreamEvent{Type: StreamEventToolEnd, Step: step, ToolCall: &records[i]}) {
					return
				}
			}
			messages = appendToolResults(messages, records)
		}

		final := Response{
			Result:     stepLimitResult(allToolCalls),
			ToolCalls:  allToolCalls,
			TotalUsage: tracker.total(),
			Steps:      l.config.MaxSteps,
			StopReason: StopReasonStepLimit,
		}
		emit(StreamEvent{Type: StreamEventFinish, Final: &final})
	}()

	return events
}

// consumeStream drains one provider stream, forwarding text and reasoning
// deltas and accumulating the assistant turn.
func (l *Loop) consumeStream(ctx context.Context, chunks <-chan provider.StreamChunk, tracker *tokenTracker, emit func(StreamEvent) bool) (string, []provider.ToolCall, error) {
	var content string
	var toolCalls []provider.ToolCall

	for {
		select {
		case <-ctx.Done():
			return content, toolCalls, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return content, toolCalls, nil
			}
			if chunk.Err != nil {
				return content, toolCalls, chunk.Err
			}
			if chunk.Content != "" {
				content += chunk.Content
				if !emit(StreamEvent{Type: StreamEventText, Content: chunk.Content}) {
					return content, toolCalls, ctx.Err()
				}
			}
			if chunk.Reasoning != "" {
				if !emit(StreamEvent{Type: StreamEventReasoning, Content: chunk.Reasoning}) {
					return content, toolCalls, ctx.Err()
				}
			}
			if len(chunk.ToolCalls) > 0 {
				toolCalls = append(toolCalls, chunk.ToolCalls...)
			}
			if chunk.Usage != nil {
				tracker.add(*chunk.Usage)
				if !emit(StreamEvent{Type: StreamEventUsage, Usage: chunk.Usage}) {
					return content, toolCalls, ctx.Err()
				}
			}
		}
	}
}
