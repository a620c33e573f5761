// Package stream fans agent event streams out to consumers and encodes
// them for transport. The client branch of a tee is faithful; the
// observation branch is advisory and may drop events under pressure.
package stream

import (
	"log/slog"
	"sync/atomic"

	"github.com/probelab/webscout/internal/agent"
)

// DefaultObserveBuffer is the observation branch buffer size.
const DefaultObserveBuffer = 64

// Tee splits one agent event stream into two branches.
//
// The client branch receives every event in order; sends block until the
// consumer reads them, so client delivery is never lossy. The observation
// branch has a bounded buffer: when the observer falls behind, events are
// dropped and counted rather than slowing the client down.
type Tee struct {
	logger  *slog.Logger
	buffer  int
	dropped atomic.Int64
}

// NewTee creates a Tee. A buffer of zero or less uses DefaultObserveBuffer.
func NewTee(logger *slog.Logger, buffer int) *Tee {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = DefaultObserveBuffer
	}
	return &Tee{logger: logger, buffer: buffer}
}

// Dropped returns how many events the observation branch has discarded.
func (t *Tee) Dropped() int64 {
	return t.dropped.Load()
}

// Split consumes in and returns the two branches. Both returned channels
// are closed once in closes and all client events have been delivered.
func (t *Tee) Split(in <-chan agent.StreamEvent) (client, observed <-chan agent.StreamEvent) {
	clientCh := make(chan agent.StreamEvent)
	observeCh := make(chan agent.StreamEvent, t.buffer)

	go func() {
		defer close(clientCh)
		defer close(observeCh)

		for ev := range in {
			select {
			case observeCh <- ev:
			default:
				if t.dropped.Add(1) == 1 {
					t.logger.Warn("observation branch falling behind, dropping events",
						"buffer", t.buffer)
				}
			}
			clientCh <- ev
		}

		if n := t.dropped.Load(); n > 0 {
			t.logger.Warn("observation branch dropped events", "count", n)
		}
	}()

	return clientCh, observeCh
}
