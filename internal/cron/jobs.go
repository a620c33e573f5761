package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TranscriptPruner is the subset of the transcript store needed by the
// retention job. Defined here to avoid a dependency on the storage module.
type TranscriptPruner interface {
	PruneOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

// TranscriptRetentionJob deletes transcript sessions older than MaxAge.
type TranscriptRetentionJob struct {
	Store        TranscriptPruner
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"
}

// Compile-time interface check.
var _ Job = (*TranscriptRetentionJob)(nil)

// Name implements Job.
func (j *TranscriptRetentionJob) Name() string {
	return "transcript_retention"
}

// Schedule implements Job.
func (j *TranscriptRetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run prunes transcripts older than MaxAge.
func (j *TranscriptRetentionJob) Run(ctx context.Context) error {
	pruned, err := j.Store.PruneOlderThan(ctx, j.MaxAge)
	if err != nil {
		return fmt.Errorf("cron: transcript retention: %w", err)
	}
	if pruned > 0 {
		j.Logger.Info("cron: pruned expired transcripts", "count", pruned, "max_age", j.MaxAge)
	}
	return nil
}

// Vacuumer is the subset of the transcript store needed by the
// maintenance job.
type Vacuumer interface {
	Vacuum(ctx context.Context) error
}

// StoreMaintenanceJob reclaims storage space after retention deletes.
type StoreMaintenanceJob struct {
	Store        Vacuumer
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "30 3 * * *"
}

// Compile-time interface check.
var _ Job = (*StoreMaintenanceJob)(nil)

// Name implements Job.
func (j *StoreMaintenanceJob) Name() string {
	return "store_maintenance"
}

// Schedule implements Job.
func (j *StoreMaintenanceJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "30 3 * * *"
}

// Run compacts the transcript store.
func (j *StoreMaintenanceJob) Run(ctx context.Context) error {
	if err := j.Store.Vacuum(ctx); err != nil {
		return fmt.Errorf("cron: store maintenance: %w", err)
	}
	j.Logger.Debug("cron: store maintenance completed")
	return nil
}
