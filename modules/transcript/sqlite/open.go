package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/probelab/webscout/internal/transcript"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// OpenStore opens a SQLite database at the given path and returns a
// transcript store backed by it, outside the module lifecycle. The caller
// is responsible for closing the returned *sql.DB when done.
//
// The database is created with WAL mode, a 5 s busy timeout, and a single
// connection (SQLite serialises writes). The schema is migrated automatically.
func OpenStore(path string) (transcript.Store, *sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := openDB(path, true, defaultBusyTimeout)
	if err != nil {
		return nil, nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return &store{db: db}, db, nil
}
