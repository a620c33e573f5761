package sqlite

import (
	"fmt"
	"time"
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "transcripts.db"
	defaultRetention   = 30 * 24 * time.Hour
)

// Config holds the SQLite transcript module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/transcripts.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// Retention controls the background cleanup of old sessions.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig controls the transcript retention sweep.
type RetentionConfig struct {
	// MaxAge is how long sessions are kept after their last update.
	// Zero disables the sweep. Defaults to 720h (30 days).
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule overrides the sweep cron expression (default hourly).
	Schedule string `yaml:"schedule"`

	// Disabled turns the sweep off entirely.
	Disabled bool `yaml:"disabled"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.Retention.MaxAge == 0 {
		c.Retention.MaxAge = defaultRetention
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("sqlite: retention.max_age must be non-negative, got %s", c.Retention.MaxAge)
	}
	return nil
}
