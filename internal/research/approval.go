package research

import (
	"context"
	"sync"

	"github.com/probelab/webscout/internal/agent"
	"github.com/probelab/webscout/internal/tool"
)

// approvalBroker bridges tool approval requests onto a turn's event
// stream. The executor blocks in RequestApproval while the request rides
// out to the client as an approval_requested event; the gateway answers
// through Resolve. An unanswered request falls to the executor's
// deny-on-timeout.
type approvalBroker struct {
	mu      sync.Mutex
	pending map[string]chan tool.ApprovalResponse
	events  chan agent.StreamEvent
}

func newApprovalBroker() *approvalBroker {
	return &approvalBroker{
		pending: make(map[string]chan tool.ApprovalResponse),
		events:  make(chan agent.StreamEvent, 4),
	}
}

// RequestApproval implements tool.ApprovalRequester.
func (b *approvalBroker) RequestApproval(ctx context.Context, req tool.ApprovalRequest) (tool.ApprovalResponse, error) {
	ch := make(chan tool.ApprovalResponse, 1)
	b.mu.Lock()
	b.pending[req.ID] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	requested := agent.StreamEvent{
		Type: agent.StreamEventApprovalRequested,
		ToolCall: &agent.ToolCallRecord{
			ID:        req.ID,
			Name:      req.ToolName,
			Arguments: req.Arguments,
		},
	}
	select {
	case b.events <- requested:
	case <-ctx.Done():
		return tool.ApprovalResponse{}, ctx.Err()
	}

	select {
	case resp := <-ch:
		responded := agent.StreamEvent{
			Type:     agent.StreamEventApprovalResponded,
			ToolCall: &agent.ToolCallRecord{ID: req.ID, Name: req.ToolName},
			Approval: &agent.ApprovalDecision{Approved: resp.Approved, Reason: resp.Reason},
		}
		select {
		case b.events <- responded:
		case <-ctx.Done():
		}
		return resp, nil
	case <-ctx.Done():
		return tool.ApprovalResponse{}, ctx.Err()
	}
}

// Resolve answers the pending request with the given ID. It reports
// whether such a request was waiting.
func (b *approvalBroker) Resolve(id string, resp tool.ApprovalResponse) bool {
	b.mu.Lock()
	ch, ok := b.pending[id]
	b.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- resp:
		return true
	default:
		// Already answered.
		return false
	}
}
