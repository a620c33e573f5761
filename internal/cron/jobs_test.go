package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// testTranscriptStore implements TranscriptPruner and Vacuumer for job tests.
type testTranscriptStore struct {
	pruneCalls  atomic.Int32
	vacuumCalls atomic.Int32
	pruneFunc   func(maxAge time.Duration) (int64, error)
	vacuumErr   error
}

func (s *testTranscriptStore) PruneOlderThan(_ context.Context, maxAge time.Duration) (int64, error) {
	s.pruneCalls.Add(1)
	if s.pruneFunc != nil {
		return s.pruneFunc(maxAge)
	}
	return 0, nil
}

func (s *testTranscriptStore) Vacuum(_ context.Context) error {
	s.vacuumCalls.Add(1)
	return s.vacuumErr
}

func TestTranscriptRetentionJob_Name(t *testing.T) {
	t.Parallel()
	j := &TranscriptRetentionJob{Logger: slog.Default()}
	if j.Name() != "transcript_retention" {
		t.Errorf("name = %q, want %q", j.Name(), "transcript_retention")
	}
}

func TestTranscriptRetentionJob_Schedule(t *testing.T) {
	t.Parallel()
	j := &TranscriptRetentionJob{Logger: slog.Default()}
	if j.Schedule() != "0 * * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "0 * * * *")
	}
	j.ScheduleExpr = "*/15 * * * *"
	if j.Schedule() != "*/15 * * * *" {
		t.Errorf("schedule = %q, want override", j.Schedule())
	}
}

func TestTranscriptRetentionJob_Run(t *testing.T) {
	t.Parallel()

	var gotMaxAge time.Duration
	store := &testTranscriptStore{pruneFunc: func(maxAge time.Duration) (int64, error) {
		gotMaxAge = maxAge
		return 3, nil
	}}
	j := &TranscriptRetentionJob{
		Store:  store,
		MaxAge: 48 * time.Hour,
		Logger: slog.Default(),
	}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.pruneCalls.Load() != 1 {
		t.Errorf("prune calls = %d, want 1", store.pruneCalls.Load())
	}
	if gotMaxAge != 48*time.Hour {
		t.Errorf("maxAge = %v, want 48h", gotMaxAge)
	}
}

func TestTranscriptRetentionJob_RunError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("db locked")
	store := &testTranscriptStore{pruneFunc: func(time.Duration) (int64, error) {
		return 0, wantErr
	}}
	j := &TranscriptRetentionJob{Store: store, Logger: slog.Default()}

	if err := j.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want %v", err, wantErr)
	}
}

func TestStoreMaintenanceJob_Run(t *testing.T) {
	t.Parallel()

	store := &testTranscriptStore{}
	j := &StoreMaintenanceJob{Store: store, Logger: slog.Default()}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.vacuumCalls.Load() != 1 {
		t.Errorf("vacuum calls = %d, want 1", store.vacuumCalls.Load())
	}

	store.vacuumErr = errors.New("vacuum failed")
	if err := j.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, want vacuum failure surfaced")
	}
}

func TestStoreMaintenanceJob_Schedule(t *testing.T) {
	t.Parallel()
	j := &StoreMaintenanceJob{Logger: slog.Default()}
	if j.Schedule() != "30 3 * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "30 3 * * *")
	}
}
