// Package sqlite is the single file storage used when no PostgreSQL is configured.
// Timestamps are stored as unix nanoseconds so snapshot ordering compares numerically.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/repository"
	"github.com/futig/design-agent/internal/telegram/state"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	getSessionQuery = `SELECT state FROM chat_sessions WHERE id = ?`

	upsertSessionQuery = `
INSERT INTO chat_sessions (id, client_id, state, started_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET state = excluded.state, updated_at = excluded.updated_at
WHERE chat_sessions.updated_at <= excluded.updated_at`

	deleteSessionQuery = `DELETE FROM chat_sessions WHERE id = ?`

	getCounterQuery = `SELECT completed FROM session_counters WHERE client_id = ?`

	incrementCounterQuery = `
INSERT INTO session_counters (client_id, completed, updated_at)
VALUES (?, 1, ?)
ON CONFLICT (client_id) DO UPDATE
SET completed = session_counters.completed + 1, updated_at = excluded.updated_at
RETURNING completed`

	isNotifiedQuery   = `SELECT EXISTS (SELECT 1 FROM session_notifications WHERE session_id = ?)`
	markNotifiedQuery = `INSERT INTO session_notifications (session_id, notified_at) VALUES (?, ?) ON CONFLICT (session_id) DO NOTHING`

	getTelegramSessionQuery = `
SELECT user_id, session_id, state_data, created_at, updated_at
FROM telegram_sessions WHERE user_id = ?`

	getTelegramSessionBySessionIDQuery = `
SELECT user_id, session_id, state_data, created_at, updated_at
FROM telegram_sessions WHERE session_id = ?
ORDER BY updated_at DESC LIMIT 1`

	upsertTelegramSessionQuery = `
INSERT INTO telegram_sessions (user_id, session_id, state_data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE
SET session_id = excluded.session_id, state_data = excluded.state_data, updated_at = excluded.updated_at`

	deleteTelegramSessionQuery = `DELETE FROM telegram_sessions WHERE user_id = ?`
)

// Store implements the session store, the session counter and the notification log
// on one SQLite database. TelegramStates shares the same database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_busy_timeout=5000&_foreign_keys=on"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
		if err := repository.Migrate(migrations, "migrations", "sqlite3://"+path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer keeps the in-memory database shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if path == ":memory:" {
		if err := applySchema(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

// applySchema runs the up migrations directly; migrate cannot reach a private in-memory database.
func applySchema(db *sql.DB) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		script, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := db.Exec(string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context, sessionID string) (*entity.SessionState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, getSessionQuery, sessionID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return repository.DecodeSession(sessionID, []byte(data))
}

func (s *Store) Save(ctx context.Context, session *entity.SessionState) error {
	data, err := repository.EncodeSession(session)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, upsertSessionQuery,
		session.ID,
		session.ClientID,
		string(data),
		session.StartedAt.UnixNano(),
		session.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, deleteSessionQuery, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, clientID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, getCounterQuery, clientID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query session counter: %w", err)
	}
	return count, nil
}

func (s *Store) Increment(ctx context.Context, clientID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, incrementCounterQuery, clientID, s.now().UnixNano()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment session counter: %w", err)
	}
	return count, nil
}

func (s *Store) IsNotified(ctx context.Context, sessionID string) (bool, error) {
	var notified bool
	if err := s.db.QueryRowContext(ctx, isNotifiedQuery, sessionID).Scan(&notified); err != nil {
		return false, fmt.Errorf("query notification flag: %w", err)
	}
	return notified, nil
}

func (s *Store) MarkNotified(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, markNotifiedQuery, sessionID, s.now().UnixNano()); err != nil {
		return fmt.Errorf("mark session notified: %w", err)
	}
	return nil
}

// TelegramStore is the telegram state storage of a Store.
type TelegramStore struct {
	db *sql.DB
}

func (s *Store) TelegramStates() *TelegramStore {
	return &TelegramStore{db: s.db}
}

func (s *TelegramStore) Get(ctx context.Context, userID int64) (*state.TelegramSession, error) {
	ts, err := scanTelegramSession(s.db.QueryRowContext(ctx, getTelegramSessionQuery, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: telegram user %d", state.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("query telegram session: %w", err)
	}
	return ts, nil
}

func (s *TelegramStore) GetBySessionID(ctx context.Context, sessionID string) (*state.TelegramSession, error) {
	ts, err := scanTelegramSession(s.db.QueryRowContext(ctx, getTelegramSessionBySessionIDQuery, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: session %s", state.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("query telegram session by session: %w", err)
	}
	return ts, nil
}

func (s *TelegramStore) Set(ctx context.Context, ts *state.TelegramSession) error {
	sessionID := sql.NullString{String: ts.SessionID, Valid: ts.SessionID != ""}

	_, err := s.db.ExecContext(ctx, upsertTelegramSessionQuery,
		ts.UserID,
		sessionID,
		string(repository.StateData(ts)),
		ts.CreatedAt.UnixNano(),
		ts.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert telegram session: %w", err)
	}
	return nil
}

func (s *TelegramStore) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, deleteTelegramSessionQuery, userID); err != nil {
		return fmt.Errorf("delete telegram session: %w", err)
	}
	return nil
}

func scanTelegramSession(row *sql.Row) (*state.TelegramSession, error) {
	var (
		userID    int64
		sessionID sql.NullString
		data      string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&userID, &sessionID, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return &state.TelegramSession{
		UserID:    userID,
		SessionID: sessionID.String,
		StateData: repository.RawStateData([]byte(data)),
		CreatedAt: time.Unix(0, createdAt),
		UpdatedAt: time.Unix(0, updatedAt),
	}, nil
}
