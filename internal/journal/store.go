package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Checkpoint kinds recorded by the ingestion workers.
const (
	KindVideo = "video"
	KindAudio = "audio"
	KindHeart = "heart"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Checkpoint is one persisted analysis snapshot.
type Checkpoint struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Stream    string          `json:"stream"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store manages checkpoint persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database under dir.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("journal directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	dbPath := filepath.Join(dir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    stream     TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    ended_at   TIMESTAMP
);
CREATE TABLE IF NOT EXISTS checkpoints (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id),
    stream     TEXT NOT NULL,
    kind       TEXT NOT NULL,
    payload    TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_session_kind
    ON checkpoints(session_id, kind, created_at);
`
	return s.execWithoutResultRetry(ctx, schema)
}

// BeginSession records a new monitoring session for a stream and
// returns its id.
func (s *Store) BeginSession(ctx context.Context, stream string) (string, error) {
	if strings.TrimSpace(stream) == "" {
		return "", errors.New("stream name required")
	}
	id := uuid.NewString()
	err := s.execWithoutResultRetry(ctx,
		`INSERT INTO sessions (id, stream, started_at) VALUES (?, ?, ?)`,
		id, stream, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	err := s.execWithoutResultRetry(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// AddCheckpoint stores one analysis snapshot. The payload is marshaled
// to JSON.
func (s *Store) AddCheckpoint(ctx context.Context, sessionID, stream, kind string, payload any) error {
	switch kind {
	case KindVideo, KindAudio, KindHeart:
	default:
		return fmt.Errorf("unknown checkpoint kind %q", kind)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode checkpoint payload: %w", err)
	}
	err = s.execWithoutResultRetry(ctx,
		`INSERT INTO checkpoints (session_id, stream, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, stream, kind, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add checkpoint: %w", err)
	}
	return nil
}

// Recent returns the newest checkpoints of one kind for a session,
// newest first.
func (s *Store) Recent(ctx context.Context, sessionID, kind string, limit int) ([]Checkpoint, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	err := retryOnBusy(ensureContext(ctx), func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ensureContext(ctx),
			`SELECT id, session_id, stream, kind, payload, created_at
             FROM checkpoints
             WHERE session_id = ? AND kind = ?
             ORDER BY created_at DESC, id DESC
             LIMIT ?`,
			sessionID, kind, limit)
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var (
			cp      Checkpoint
			payload string
		)
		if err := rows.Scan(&cp.ID, &cp.SessionID, &cp.Stream, &cp.Kind, &payload, &cp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Payload = json.RawMessage(payload)
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
