// Package research orchestrates a chat turn: it persists the transcript,
// runs the agent loop against the model capability, and fans the event
// stream out to the client and the observer.
package research

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/probelab/webscout/internal/agent"
	"github.com/probelab/webscout/internal/provider"
	"github.com/probelab/webscout/internal/stream"
	"github.com/probelab/webscout/internal/tool"
	"github.com/probelab/webscout/internal/transcript"
	"github.com/probelab/webscout/pkg/message"
)

// SystemPrompt frames the model as a web research assistant.
const SystemPrompt = `You are a web research assistant. Use the searchWeb tool to find
relevant pages and the scrapeWebsite tool to read them. Ground every claim
in a scraped or searched source, cite source URLs in your findings, and
record the search strategies you used. When you have enough evidence, stop
calling tools and emit the final structured answer.`

// Config holds the service dependencies.
type Config struct {
	Provider provider.Provider
	Registry *tool.Registry
	Store    transcript.Store
	Metrics  *stream.Metrics
	Logger   *slog.Logger
	Loop     agent.LoopConfig

	// Requester handles tool approval prompts. Nil means each turn gets
	// an approval broker and ask-gated tools wait for Turn.Resolve,
	// denied by default on timeout.
	Requester tool.ApprovalRequester
}

// Service runs research chat turns.
type Service struct {
	provider  provider.Provider
	registry  *tool.Registry
	store     transcript.Store
	logger    *slog.Logger
	loopCfg   agent.LoopConfig
	tee       *stream.Tee
	observer  *stream.Observer
	requester tool.ApprovalRequester
}

// NewService creates a Service. Store may be nil, in which case
// transcripts are kept in memory only.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Store
	if store == nil {
		store = transcript.NewMemStore()
	}
	if cfg.Registry == nil {
		cfg.Registry = tool.NewRegistry()
	}
	return &Service{
		provider:  cfg.Provider,
		registry:  cfg.Registry,
		store:     store,
		logger:    logger,
		loopCfg:   cfg.Loop,
		tee:       stream.NewTee(logger, stream.DefaultObserveBuffer),
		observer:  stream.NewObserver(logger, cfg.Metrics),
		requester: cfg.Requester,
	}
}

// ChatRequest is one inbound chat turn.
type ChatRequest struct {
	// SessionID identifies the conversation. Empty starts a new session.
	SessionID string `json:"sessionId,omitempty"`

	// Messages is the client's message history, newest last. At minimum
	// the latest user message.
	Messages []message.Message `json:"messages"`
}

// Turn is a running chat turn: the session it belongs to and the client
// branch of its event stream.
type Turn struct {
	SessionID string
	Events    <-chan agent.StreamEvent

	approvals *approvalBroker
}

// Resolve answers a pending tool approval by request ID. It reports
// whether the request was still waiting; a stale or unknown ID is a no-op.
func (t *Turn) Resolve(id string, approved bool, reason string) bool {
	if t.approvals == nil {
		return false
	}
	return t.approvals.Resolve(id, tool.ApprovalResponse{Approved: approved, Reason: reason})
}

// Store exposes the transcript store for listing and deletion endpoints.
func (s *Service) Store() transcript.Store {
	return s.store
}

// toolDefinitions projects the registry catalog into the provider shape.
func (s *Service) toolDefinitions() []provider.ToolDefinition {
	defs := s.registry.Definitions()
	out := make([]provider.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = provider.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		}
	}
	return out
}

// Run validates the request, persists the inbound user message, and starts
// the agent loop. Events stream on the returned Turn; the final assistant
// message and result are persisted when the run finishes.
func (s *Service) Run(ctx context.Context, req ChatRequest) (*Turn, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("research: empty message history")
	}
	if err := message.ValidateHistory(req.Messages); err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	latest := req.Messages[len(req.Messages)-1]
	if latest.Role == message.RoleUser {
		if err := s.store.Append(ctx, sessionID, latest); err != nil {
			s.logger.Error("transcript append failed", "session", sessionID, "error", err)
		}
	}

	agentReq := agent.Request{
		Messages:     toLLMMessages(req.Messages),
		SystemPrompt: SystemPrompt,
		Tools:        s.toolDefinitions(),
		Config:       s.loopCfg,
	}

	// Without a configured requester each turn gets its own broker, so
	// the transport can answer approvals through Turn.Resolve.
	requester := s.requester
	var broker *approvalBroker
	if requester == nil {
		broker = newApprovalBroker()
		requester = broker
	}
	approvalTimeout := s.loopCfg.ApprovalTimeout
	if approvalTimeout <= 0 {
		approvalTimeout = agent.DefaultApprovalTimeout
	}
	executor := agent.NewToolExecutor(agent.ToolExecutorConfig{
		Registry:        s.registry,
		Requester:       requester,
		ApprovalTimeout: approvalTimeout,
	})

	loop := agent.NewLoop(s.provider, executor, s.loopCfg)
	events := loop.RunStream(ctx, agentReq)

	client, observed := s.tee.Split(events)
	go s.observer.Observe(observed)

	// Persist the finished turn from the client branch without delaying
	// it: a relay goroutine forwards events and captures the final state.
	// Broker events interleave with the loop's own, which is safe: an
	// approval request only ever happens between tool_start and tool_end,
	// while the loop channel is quiet.
	var approvals chan agent.StreamEvent
	if broker != nil {
		approvals = broker.events
	}
	relayed := make(chan agent.StreamEvent)
	go func() {
		defer close(relayed)
		var final *agent.Response
		for {
			select {
			case ev, ok := <-client:
				if !ok {
					// A buffered approval_responded can still be in
					// flight when the loop finishes.
					for {
						select {
						case ev := <-approvals:
							relayed <- ev
						default:
							if final != nil {
								s.persist(sessionID, *final)
							}
							return
						}
					}
				}
				if ev.Final != nil {
					final = ev.Final
				}
				relayed <- ev
			case ev := <-approvals:
				relayed <- ev
			}
		}
	}()

	return &Turn{SessionID: sessionID, Events: relayed, approvals: broker}, nil
}

// persist writes the assistant turn and final result to the transcript.
// Uses a fresh context: the request context is often cancelled as soon as
// the stream ends.
func (s *Service) persist(sessionID string, final agent.Response) {
	ctx := context.Background()

	msg := assistantMessage(final)
	if len(msg.Parts) > 0 {
		if err := s.store.Append(ctx, sessionID, msg); err != nil {
			s.logger.Error("transcript append failed", "session", sessionID, "error", err)
		}
	}
	if err := s.store.SaveResult(ctx, sessionID, final.Result); err != nil {
		s.logger.Error("result save failed", "session", sessionID, "error", err)
	}
}
