// Package session persists configurator sessions: the current selection,
// contact data and the chat transcript.
//
// It uses SQLite (pure Go driver) with WAL so the HTTP service and the
// MCP server can share one database file.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/logging"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// ErrEmptyMessage is returned when a message has no text.
var ErrEmptyMessage = errors.New("message text is required")

// Config holds store settings.
type Config struct {
	DataDir  string
	Notifier Notifier
	Logger   *slog.Logger
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".aluconfig")}
}

// Store is the SQLite-backed session store.
type Store struct {
	db       *sql.DB
	notifier Notifier
	logger   *slog.Logger
}

// New opens (or creates) the session database under cfg.DataDir.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("session: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "sessions.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("session: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, notifier: cfg.Notifier, logger: logging.Or(cfg.Logger)}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id              TEXT PRIMARY KEY,
			status          TEXT NOT NULL DEFAULT 'active',
			platform        TEXT NOT NULL DEFAULT 'web',
			selection       TEXT NOT NULL DEFAULT '{}',
			user_data       TEXT NOT NULL DEFAULT '{}',
			last_message    TEXT,
			last_message_at TEXT,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT    NOT NULL,
			role       TEXT    NOT NULL,
			text       TEXT    NOT NULL,
			sent_at    TEXT,
			created_at TEXT    NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func now() string {
	return timeNow().UTC().Format(time.RFC3339)
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Create starts a new active session.
func (s *Store) Create(ctx context.Context, platform string) (*Session, error) {
	if platform == "" {
		platform = DefaultPlatform
	}
	id := NewID()
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, platform, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, StatusActive, platform, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	return s.afterWrite(ctx, id)
}

// UpdateSelection replaces the stored product choice.
func (s *Store) UpdateSelection(ctx context.Context, id string, sel engine.Selections) (*Session, error) {
	data, err := json.Marshal(sel)
	if err != nil {
		return nil, fmt.Errorf("session: encode selection: %w", err)
	}
	if err := s.update(ctx, id, `UPDATE sessions SET selection = ?, updated_at = ? WHERE id = ?`, string(data), now(), id); err != nil {
		return nil, err
	}
	return s.afterWrite(ctx, id)
}

// UpdateUserData replaces the stored contact data.
func (s *Store) UpdateUserData(ctx context.Context, id string, data UserData) (*Session, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("session: encode user data: %w", err)
	}
	if err := s.update(ctx, id, `UPDATE sessions SET user_data = ?, updated_at = ? WHERE id = ?`, string(raw), now(), id); err != nil {
		return nil, err
	}
	return s.afterWrite(ctx, id)
}

// SetStatus changes the session status.
func (s *Store) SetStatus(ctx context.Context, id, status string) (*Session, error) {
	if err := s.update(ctx, id, `UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id); err != nil {
		return nil, err
	}
	return s.afterWrite(ctx, id)
}

// AppendMessage adds msg to the transcript and records it as the last
// message of the session.
func (s *Store) AppendMessage(ctx context.Context, id string, msg Message) (*Session, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	role := msg.Role
	if role == "" {
		role = RoleUser
	}
	ts := now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("session: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_message = ?, last_message_at = ?, updated_at = ? WHERE id = ?`,
		text, ts, ts, id,
	)
	if err != nil {
		return nil, fmt.Errorf("session: append message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, text, sent_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, role, text, nullable(msg.Timestamp), ts,
	); err != nil {
		return nil, fmt.Errorf("session: append message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("session: commit: %w", err)
	}
	return s.afterWrite(ctx, id)
}

func (s *Store) update(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("session: update %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// afterWrite reloads the session and publishes it to watchers.
// Notification failures are logged, never returned.
func (s *Store) afterWrite(ctx context.Context, id string) (*Session, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, *snap); err != nil {
			s.logger.Warn("session: publish snapshot", "session_id", id, "error", err)
		}
	}
	return snap, nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

const sessionColumns = `
	s.id, s.status, s.platform, s.selection, s.user_data,
	s.last_message, s.last_message_at, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess               Session
		selection, userRaw string
	)
	if err := row.Scan(
		&sess.ID, &sess.Status, &sess.Platform, &selection, &userRaw,
		&sess.LastMessage, &sess.LastMessageAt, &sess.CreatedAt, &sess.UpdatedAt,
		&sess.MessageCount,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(selection), &sess.Selection); err != nil {
		return nil, fmt.Errorf("session: decode selection of %s: %w", sess.ID, err)
	}
	if err := json.Unmarshal([]byte(userRaw), &sess.UserData); err != nil {
		return nil, fmt.Errorf("session: decode user data of %s: %w", sess.ID, err)
	}
	return &sess, nil
}

// Get loads one session.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", id, err)
	}
	return sess, nil
}

// Recent lists the most recently updated sessions.
func (s *Store) Recent(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s ORDER BY s.updated_at DESC, s.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("session: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("session: recent: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// Messages returns the transcript of id in insertion order. A limit > 0
// keeps only the latest limit messages.
func (s *Store) Messages(ctx context.Context, id string, limit int) ([]Message, error) {
	query := `SELECT id, session_id, role, text, COALESCE(sent_at, ''), created_at
		FROM messages WHERE session_id = ? ORDER BY id`
	args := []any{id}
	if limit > 0 {
		query = `SELECT * FROM (
			SELECT id, session_id, role, text, COALESCE(sent_at, ''), created_at
			FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("session: messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Text, &m.Timestamp, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("session: messages: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
