package transcript

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/probelab/webscout/internal/report"
	"github.com/probelab/webscout/pkg/message"
)

// sessionData holds the transcript and result for a single session.
type sessionData struct {
	title     string
	messages  []message.Message
	result    *report.StructuredResult
	createdAt time.Time
	updatedAt time.Time
}

// MemStore is a thread-safe, in-memory implementation of Store. It is the
// default when no storage module is configured.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
	now      func() time.Time
}

// NewMemStore creates a new empty transcript store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]*sessionData),
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// Append adds a message to the session's transcript.
func (s *MemStore) Append(_ context.Context, sessionID string, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		sd = &sessionData{createdAt: s.now()}
		s.sessions[sessionID] = sd
	}
	if sd.title == "" && msg.Role == message.RoleUser {
		sd.title = Title(msg)
	}
	sd.messages = append(sd.messages, msg)
	sd.updatedAt = s.now()
	return nil
}

// Messages returns the session's transcript in order.
func (s *MemStore) Messages(_ context.Context, sessionID string) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	result := make([]message.Message, len(sd.messages))
	copy(result, sd.messages)
	return result, nil
}

// SaveResult stores the final structured result for a session.
func (s *MemStore) SaveResult(_ context.Context, sessionID string, result report.StructuredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		sd = &sessionData{createdAt: s.now()}
		s.sessions[sessionID] = sd
	}
	sd.result = &result
	sd.updatedAt = s.now()
	return nil
}

// Result returns the stored result for a session.
func (s *MemStore) Result(_ context.Context, sessionID string) (report.StructuredResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok || sd.result == nil {
		return report.StructuredResult{}, false, nil
	}
	return *sd.result, true, nil
}

// Sessions lists stored sessions, most recently updated first.
func (s *MemStore) Sessions(_ context.Context) ([]SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(s.sessions))
	for id, sd := range s.sessions {
		infos = append(infos, SessionInfo{
			ID:        id,
			Title:     sd.title,
			CreatedAt: sd.createdAt,
			UpdatedAt: sd.updatedAt,
			Messages:  len(sd.messages),
		})
	}
	slices.SortFunc(infos, func(a, b SessionInfo) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return infos, nil
}

// Delete removes a session.
func (s *MemStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// PruneOlderThan deletes sessions not updated within maxAge.
func (s *MemStore) PruneOlderThan(_ context.Context, maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	var pruned int64
	for id, sd := range s.sessions {
		if sd.updatedAt.Before(cutoff) {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned, nil
}
