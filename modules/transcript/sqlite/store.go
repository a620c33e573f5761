package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/probelab/webscout/internal/report"
	"github.com/probelab/webscout/internal/transcript"
	"github.com/probelab/webscout/pkg/message"
)

// store implements transcript.Store backed by SQLite.
type store struct {
	db *sql.DB
}

// Append adds a message to the session's transcript, creating the session
// row on first append.
func (s *store) Append(ctx context.Context, sessionID string, msg message.Message) error {
	partsJSON, err := json.Marshal(msg.Parts)
	if err != nil {
		return fmt.Errorf("sqlite: marshal parts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (id) VALUES (?)", sessionID); err != nil {
		return fmt.Errorf("sqlite: create session: %w", err)
	}

	if msg.Role == message.RoleUser {
		if _, err := tx.ExecContext(ctx,
			"UPDATE sessions SET title = ? WHERE id = ? AND title = ''",
			transcript.Title(msg), sessionID); err != nil {
			return fmt.Errorf("sqlite: set title: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, seq, role, parts)
		VALUES (?, COALESCE((SELECT MAX(seq) FROM messages WHERE session_id = ?), 0) + 1, ?, ?)`,
		sessionID, sessionID, string(msg.Role), string(partsJSON),
	); err != nil {
		return fmt.Errorf("sqlite: append message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now') WHERE id = ?",
		sessionID); err != nil {
		return fmt.Errorf("sqlite: touch session: %w", err)
	}

	return tx.Commit()
}

// Messages returns the session's transcript in order.
func (s *store) Messages(ctx context.Context, sessionID string) ([]message.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, parts
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []message.Message
	for rows.Next() {
		var (
			role      string
			partsJSON string
		)
		if err := rows.Scan(&role, &partsJSON); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		msg := message.Message{Role: message.Role(role)}
		if err := json.Unmarshal([]byte(partsJSON), &msg.Parts); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal parts: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: message rows: %w", err)
	}

	return msgs, nil
}

// SaveResult stores the final structured result, replacing any previous one.
func (s *store) SaveResult(ctx context.Context, sessionID string, result report.StructuredResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("sqlite: marshal result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin result tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (id) VALUES (?)", sessionID); err != nil {
		return fmt.Errorf("sqlite: create session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO results (session_id, result, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))`,
		sessionID, string(resultJSON),
	); err != nil {
		return fmt.Errorf("sqlite: save result: %w", err)
	}

	return tx.Commit()
}

// Result returns the stored result for a session.
func (s *store) Result(ctx context.Context, sessionID string) (report.StructuredResult, bool, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT result FROM results WHERE session_id = ?", sessionID,
	).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report.StructuredResult{}, false, nil
		}
		return report.StructuredResult{}, false, fmt.Errorf("sqlite: get result: %w", err)
	}

	var result report.StructuredResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return report.StructuredResult{}, false, fmt.Errorf("sqlite: unmarshal result: %w", err)
	}
	return result, true, nil
}

// Sessions lists stored sessions, most recently updated first.
func (s *store) Sessions(ctx context.Context) ([]transcript.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s
		ORDER BY s.updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []transcript.SessionInfo
	for rows.Next() {
		var (
			info      transcript.SessionInfo
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&info.ID, &info.Title, &createdAt, &updatedAt, &info.Messages); err != nil {
			return nil, fmt.Errorf("sqlite: scan session: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: session rows: %w", err)
	}

	return infos, nil
}

// Delete removes a session's transcript and result.
func (s *store) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("sqlite: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete session: %w", err)
	}
	if n == 0 {
		return transcript.ErrSessionNotFound
	}
	return nil
}

// PruneOlderThan deletes sessions not updated within maxAge.
func (s *store) PruneOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format("2006-01-02T15:04:05.000Z")
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune sessions: %w", err)
	}
	return n, nil
}

// Vacuum reclaims space after deletes.
func (s *store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("sqlite: vacuum: %w", err)
	}
	return nil
}
