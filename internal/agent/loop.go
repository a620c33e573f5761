package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/probelab/webscout/internal/provider"
	"github.com/probelab/webscout/internal/report"
)

// Sentinel errors for agent loop termination.
var (
	ErrTokenBudgetExceeded = errors.New("agent: token budget exceeded")
	ErrLoopDetected        = errors.New("agent: loop detected")
	ErrContractViolation   = errors.New("agent: structured output violates contract")
)

// wrapUpDirective is injected one step before the ceiling so the model
// converges instead of starting new tool explorations it cannot finish.
const wrapUpDirective = "You are almost out of reasoning steps. Do not request " +
	"more tool calls unless strictly necessary. Consolidate what you have " +
	"found so far and produce your final structured answer now."

// correctiveDirective is sent after an invalid final answer. The loop
// allows exactly one corrective attempt before giving up.
const correctiveDirective = "Your final answer did not satisfy the required " +
	"output contract: %s. Emit the final answer again as a single JSON object " +
	"matching the schema, with taskCompleted true only when findings are present " +
	"and taskStatus consistent with taskCompleted."

// Loop drives the bounded reason/act cycle against the model capability.
type Loop struct {
	provider provider.Provider
	executor *ToolExecutor
	config   LoopConfig
}

// NewLoop creates a Loop with the given provider, executor, and config.
func NewLoop(p provider.Provider, executor *ToolExecutor, cfg LoopConfig) *Loop {
	return &Loop{
		provider: p,
		executor: executor,
		config:   cfg.withDefaults(),
	}
}

// buildInitialMessages assembles the initial message history from the request.
func buildInitialMessages(req Request) []provider.LLMMessage {
	var messages []provider.LLMMessage
	if req.SystemPrompt != "" {
		messages = append(messages, provider.LLMMessage{
			Role:    provider.MessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	return append(messages, req.Messages...)
}

// appendToolResults adds tool execution results to the conversation history.
func appendToolResults(messages []provider.LLMMessage, records []ToolCallRecord) []provider.LLMMessage {
	for _, rec := range records {
		messages = append(messages, provider.LLMMessage{
			Role:    provider.MessageRoleTool,
			Content: rec.Output.Content,
			ToolID:  rec.ID,
			IsError: rec.Output.IsError,
		})
	}
	return messages
}

// completionRequest builds the per-step provider request: full history,
// tool catalog, and the structured-output contract.
func (l *Loop) completionRequest(messages []provider.LLMMessage, tools []provider.ToolDefinition) provider.CompletionRequest {
	return provider.CompletionRequest{
		Messages: messages,
		Tools:    tools,
		ResponseFormat: &provider.ResponseFormat{
			Name:   report.SchemaName,
			Schema: report.SchemaJSON(),
		},
	}
}

// searchStrategies extracts the distinct searchWeb queries issued during
// the loop, used to fill the strategy log of best-effort results.
func searchStrategies(records []ToolCallRecord) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.Name != "searchWeb" {
			continue
		}
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(rec.Arguments, &args); err != nil || args.Query == "" {
			continue
		}
		if _, dup := seen[args.Query]; dup {
			continue
		}
		seen[args.Query] = struct{}{}
		out = append(out, args.Query)
	}
	return out
}

// stepLimitResult is the explicit "could not complete" answer produced when
// the ceiling is reached; the loop terminates without an error in this case.
func stepLimitResult(records []ToolCallRecord) report.StructuredResult {
	return report.Incomplete(
		report.StatusInsufficientData,
		"The step budget was exhausted before the task could be completed.",
		searchStrategies(records),
	)
}

// Run executes the loop synchronously and returns the final response.
//
// A context.WithTimeout is applied using l.config.Timeout. If the caller's
// context already carries a shorter deadline, the shorter one takes effect.
func (l *Loop) Run(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	detector := newLoopDetector(l.config.LoopThreshold)
	tracker := newTokenTracker(l.config.TokenBudget)
	messages := buildInitialMessages(req)

	var allToolCalls []ToolCallRecord
	corrected := false

	for step := 1; step <= l.config.MaxSteps; step++ {
		// Check context cancellation (timeout or external cancel).
		if err := ctx.Err(); err != nil {
			stopReason := StopReasonModelError
			if errors.Is(err, context.DeadlineExceeded) {
				stopReason = StopReasonTimeout
			}
			return Response{
				Result:     stepLimitResult(allToolCalls),
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Steps:      step - 1,
				StopReason: stopReason,
			}, err
		}

		if tracker.exceeded() {
			return Response{
				Result:     stepLimitResult(allToolCalls),
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Steps:      step - 1,
				StopReason: StopReasonTokenBudget,
			}, ErrTokenBudgetExceeded
		}

		// One step before the ceiling, nudge the model to converge.
		if step == l.config.MaxSteps-1 {
			messages = append(messages, provider.LLMMessage{
				Role:    provider.MessageRoleSystem,
				Content: wrapUpDirective,
			})
		}

		resp, err := l.provider.Complete(ctx, l.completionRequest(messages, req.Tools))
		if err != nil {
			return Response{
				Result:     stepLimitResult(allToolCalls),
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Steps:      step - 1,
				StopReason: StopReasonModelError,
			}, err
		}

		tracker.add(resp.Usage)
		if tracker.exceeded() {
			return Response{
				Result:     stepLimitResult(allToolCalls),
				ToolCalls:  allToolCalls,
				TotalUsage: tracker.total(),
				Steps:      step,
				StopReason: StopReasonTokenBudget,
			}, ErrTokenBudgetExceeded
		}

		// No tool calls: the model emitted its final answer.
		if len(resp.ToolCalls) == 0 {
			result, parseErr := report.Parse(resp.Content)
			if parseErr == nil {
				return Response{
					Result:     result,
					Content:    resp.Content,
					ToolCalls:  allToolCalls,
					TotalUsage: tracker.total(),
					Steps:      step,
					StopReason: StopReasonComplete,
				}, nil
			}

			// Contract violation: allow exactly one corrective re-prompt,
			// then surface the violation instead of guessing intent.
			if corrected {
				return Response{
					Result:     stepLimitResult(allToolCalls),
					Content:    resp.Content,
					ToolCalls:  allToolCalls,
					TotalUsage: tracker.total(),
					Steps:      step,
					StopReason: StopReasonContractViolation,
				}, errors.Join(ErrContractViolation, parseErr)
			}
			corrected = true
			messages = append(messages,
				provider.LLMMessage{Role: provider.MessageRoleAssistant, Content: resp.Content},
				provider.LLMMessage{Role: provider.MessageRoleSystem, Content: correctiveMessage(parseErr)},
			)
			continue
		}

		// Check for loops before appending the assistant message to avoid
		// leaving an orphan assistant message without tool results.
		for _, tc := range resp.ToolCalls {
			if detector.record(tc.Name, tc.Arguments) {
				return Response{
					Result:     stepLimitResult(allToolCalls),
					ToolCalls:  allToolCalls,
					TotalUsage: tracker.total(),
					Steps:      step,
					StopReason: StopReasonLoopDetected,
				}, ErrLoopDetected
			}
		}

		messages = append(messages, provider.LLMMessage{
			Role:      provider.MessageRoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Dispatch all calls for this step and join before advancing.
		records := l.executor.Execute(ctx, resp.ToolCalls)
		allToolCalls = append(allToolCalls, records...)
		messages = appendToolResults(messages, records)
	}

	// Step ceiling reached: a non-fatal termination path. The loop hands
	// back an explicit could-not-complete result instead of an error.
	return Response{
		Result:     stepLimitResult(allToolCalls),
		ToolCalls:  allToolCalls,
		TotalUsage: tracker.total(),
		Steps:      l.config.MaxSteps,
		StopReason: StopReasonStepLimit,
	}, nil
}

func correctiveMessage(violation error) string {
	return fmt.Sprintf(correctiveDirective, violation)
}
