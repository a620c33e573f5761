// Package sqlite implements a persistent SQLite-backed transcript module.
// It uses modernc.org/sqlite (pure Go, no CGO) with WAL mode and runs the
// transcript retention sweep on a cron schedule.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/probelab/webscout/internal/core"
	"github.com/probelab/webscout/internal/cron"
	"github.com/probelab/webscout/internal/transcript"
	"gopkg.in/yaml.v3"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ transcript.Store  = (*store)(nil)
	_ cron.Vacuumer     = (*store)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module implements the SQLite-backed transcript store with a background
// retention scheduler.
type Module struct {
	config    Config
	db        *sql.DB
	logger    *slog.Logger
	store     *store
	scheduler *cron.Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "transcript.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	if dir := filepath.Dir(m.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := openDB(m.config.Path, m.config.walEnabled(), m.config.BusyTimeout)
	if err != nil {
		return err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	m.store = &store{db: db}

	ctx.RegisterService("transcript.store", m.store)

	m.logger.Info("sqlite transcript module provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)

	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}

	if err := m.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}

	var n int
	if err := m.db.QueryRowContext(context.TODO(), "SELECT count(*) FROM sessions").Scan(&n); err != nil {
		return fmt.Errorf("sqlite: schema check failed: %w", err)
	}

	return nil
}

// Start implements core.Starter: it launches the retention scheduler.
func (m *Module) Start() error {
	if m.config.Retention.Disabled || m.config.Retention.MaxAge <= 0 {
		m.logger.Info("transcript retention sweep disabled")
		return nil
	}

	m.scheduler = cron.NewScheduler(m.logger)

	if err := m.scheduler.RegisterJob(&cron.TranscriptRetentionJob{
		Store:        m.store,
		MaxAge:       m.config.Retention.MaxAge,
		Logger:       m.logger,
		ScheduleExpr: m.config.Retention.Schedule,
	}); err != nil {
		return err
	}
	if err := m.scheduler.RegisterJob(&cron.StoreMaintenanceJob{
		Store:  m.store,
		Logger: m.logger,
	}); err != nil {
		return err
	}

	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("sqlite transcript module stopping")
	if m.scheduler != nil {
		if err := m.scheduler.Stop(ctx); err != nil {
			m.logger.Error("scheduler stop error", "error", err)
		}
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Store returns the transcript store implementation.
func (m *Module) Store() transcript.Store {
	return m.store
}

// openDB opens the database and applies connection pragmas.
func openDB(path string, wal bool, busyTimeout int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	if wal {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	return db, nil
}
