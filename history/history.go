// Package history persists connection session records in a local
// SQLite database (modernc.org/sqlite driver, CGO-free).
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yllada/ovpnctl/common"
)

// Session is one recorded connection attempt.
type Session struct {
	ID        string
	Profile   string
	StartedAt time.Time
	// ConnectedAt is zero when the tunnel never came up.
	ConnectedAt time.Time
	// EndedAt is zero while the session is still running.
	EndedAt    time.Time
	AssignedIP string
	BytesIn    uint64
	BytesOut   uint64
	EndReason  string
}

// Duration returns how long the tunnel was up, or zero for sessions
// that never connected or have not ended.
func (s Session) Duration() time.Duration {
	if s.ConnectedAt.IsZero() || s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.ConnectedAt)
}

// Store records sessions in a SQLite database. It satisfies
// common.SessionRecorder so the supervisor can report through it.
type Store struct {
	db *sql.DB
}

var _ common.SessionRecorder = (*Store)(nil)

// DefaultPath returns the standard history database location.
func DefaultPath() (string, error) {
	configDir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, common.HistoryFileName), nil
}

// Open opens the history database at path, creating the file and
// schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// busy timeout helps with short concurrent locks
	_, _ = db.Exec("PRAGMA busy_timeout=3000;")

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions(
			id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			connected_at INTEGER NULL,
			ended_at INTEGER NULL,
			assigned_ip TEXT NOT NULL DEFAULT '',
			bytes_in INTEGER NOT NULL DEFAULT 0,
			bytes_out INTEGER NOT NULL DEFAULT 0,
			end_reason TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SessionStarted inserts a new session row. Timestamps are stored as
// unix seconds.
func (s *Store) SessionStarted(id, profile string, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions(id, profile, started_at)
		VALUES(?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile=excluded.profile,
			started_at=excluded.started_at;`,
		id, profile, at.Unix())
	return err
}

// SessionConnected stamps the time the tunnel came up.
func (s *Store) SessionConnected(id string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE sessions SET connected_at=? WHERE id=?;`, at.Unix(), id)
	return err
}

// SessionEnded finalizes a session row with its last known counters
// and the reason the session ended.
func (s *Store) SessionEnded(id string, at time.Time, assignedIP string, bytesIn, bytesOut uint64, reason string) error {
	_, err := s.db.Exec(`
		UPDATE sessions
		SET ended_at=?, assigned_ip=?, bytes_in=?, bytes_out=?, end_reason=?
		WHERE id=?;`,
		at.Unix(), assignedIP, int64(bytesIn), int64(bytesOut), reason, id)
	return err
}

// Recent returns up to limit sessions, newest first. A non-positive
// limit selects a default of 20.
func (s *Store) Recent(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, profile, started_at, connected_at, ended_at, assigned_ip, bytes_in, bytes_out, end_reason
		FROM sessions
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]Session, error) {
	out := make([]Session, 0)
	for rows.Next() {
		var (
			sess             Session
			started          int64
			connected, ended sql.NullInt64
			bytesIn          int64
			bytesOut         int64
		)
		if err := rows.Scan(&sess.ID, &sess.Profile, &started, &connected, &ended,
			&sess.AssignedIP, &bytesIn, &bytesOut, &sess.EndReason); err != nil {
			return nil, err
		}
		sess.StartedAt = time.Unix(started, 0)
		if connected.Valid {
			sess.ConnectedAt = time.Unix(connected.Int64, 0)
		}
		if ended.Valid {
			sess.EndedAt = time.Unix(ended.Int64, 0)
		}
		sess.BytesIn = uint64(bytesIn)
		sess.BytesOut = uint64(bytesOut)
		out = append(out, sess)
	}
	return out, rows.Err()
}
