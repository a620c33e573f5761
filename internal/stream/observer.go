package stream

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/probelab/webscout/internal/agent"
)

// Metrics holds the Prometheus collectors fed by the Observer.
type Metrics struct {
	ToolCalls   *prometheus.CounterVec
	Steps       prometheus.Counter
	Runs        *prometheus.CounterVec
	TokensTotal prometheus.Counter
}

// NewMetrics registers the stream collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webscout",
			Name:      "tool_calls_total",
			Help:      "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		Steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "webscout",
			Name:      "agent_steps_total",
			Help:      "Agent reasoning steps started.",
		}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webscout",
			Name:      "agent_runs_total",
			Help:      "Agent runs finished, by stop reason.",
		}, []string{"stop_reason"}),
		TokensTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "webscout",
			Name:      "tokens_total",
			Help:      "Cumulative tokens consumed across runs.",
		}),
	}
}

// Observer consumes the observation branch of a tee, emitting structured
// logs and metrics. Everything here is best-effort: a malformed tool
// payload is logged as-is rather than failing the stream.
type Observer struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewObserver creates an Observer. metrics may be nil to disable counters.
func NewObserver(logger *slog.Logger, metrics *Metrics) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger, metrics: metrics}
}

// Observe drains events until the channel closes. Run it in its own
// goroutine; it never writes back into the stream.
func (o *Observer) Observe(events <-chan agent.StreamEvent) {
	for ev := range events {
		switch ev.Type {
		case agent.StreamEventStep:
			o.logger.Debug("agent step", "step", ev.Step)
			if o.metrics != nil {
				o.metrics.Steps.Inc()
			}

		case agent.StreamEventToolStart:
			if ev.ToolCall == nil {
				continue
			}
			o.logger.Info("tool call started",
				"tool", ev.ToolCall.Name,
				"call_id", ev.ToolCall.ID,
				"args", compactArgs(ev.ToolCall.Arguments))

		case agent.StreamEventToolEnd:
			if ev.ToolCall == nil {
				continue
			}
			outcome := "ok"
			if ev.ToolCall.Output.IsError {
				outcome = "error"
			}
			if ev.ToolCall.Panicked {
				outcome = "panic"
			}
			o.logger.Info("tool call finished",
				"tool", ev.ToolCall.Name,
				"call_id", ev.ToolCall.ID,
				"outcome", outcome,
				"duration", ev.ToolCall.Duration)
			if o.metrics != nil {
				o.metrics.ToolCalls.WithLabelValues(ev.ToolCall.Name, outcome).Inc()
			}

		case agent.StreamEventError:
			o.logger.Error("agent run failed", "error", ev.Err)
			if o.metrics != nil && ev.Final != nil {
				o.metrics.Runs.WithLabelValues(string(ev.Final.StopReason)).Inc()
				o.metrics.TokensTotal.Add(float64(ev.Final.TotalUsage.TotalTokens))
			}

		case agent.StreamEventFinish:
			if ev.Final == nil {
				continue
			}
			o.logger.Info("agent run finished",
				"stop_reason", ev.Final.StopReason,
				"steps", ev.Final.Steps,
				"tool_calls", len(ev.Final.ToolCalls),
				"tokens", ev.Final.TotalUsage.TotalTokens,
				"task_status", ev.Final.Result.TaskStatus)
			if o.metrics != nil {
				o.metrics.Runs.WithLabelValues(string(ev.Final.StopReason)).Inc()
				o.metrics.TokensTotal.Add(float64(ev.Final.TotalUsage.TotalTokens))
			}
		}
	}
}

// compactArgs renders tool arguments for logging, truncated so a large
// scrape payload cannot flood the log.
func compactArgs(raw json.RawMessage) string {
	const maxLen = 256
	var buf bytes.Buffer
	s := string(raw)
	if err := json.Compact(&buf, raw); err == nil {
		s = buf.String()
	}
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
