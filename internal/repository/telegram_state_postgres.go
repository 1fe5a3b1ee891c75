package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futig/design-agent/internal/telegram/state"
)

const (
	getTelegramSessionQuery = `
SELECT user_id, session_id, state_data, created_at, updated_at
FROM telegram_sessions WHERE user_id = $1`

	getTelegramSessionBySessionIDQuery = `
SELECT user_id, session_id, state_data, created_at, updated_at
FROM telegram_sessions WHERE session_id = $1
ORDER BY updated_at DESC LIMIT 1`

	upsertTelegramSessionQuery = `
INSERT INTO telegram_sessions (user_id, session_id, state_data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE
SET session_id = EXCLUDED.session_id, state_data = EXCLUDED.state_data, updated_at = EXCLUDED.updated_at`

	deleteTelegramSessionQuery = `DELETE FROM telegram_sessions WHERE user_id = $1`
)

// TelegramSessionRepository handles telegram session mapping persistence
type TelegramSessionRepository struct {
	db *pgxpool.Pool
}

// NewTelegramStateRepository creates a new telegram session repository
func NewTelegramStateRepository(db *pgxpool.Pool) *TelegramSessionRepository {
	return &TelegramSessionRepository{db: db}
}

// Get retrieves telegram session by user ID
func (r *TelegramSessionRepository) Get(ctx context.Context, userID int64) (*state.TelegramSession, error) {
	ts, err := scanTelegramSession(r.db.QueryRow(ctx, getTelegramSessionQuery, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: telegram user %d", state.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("query telegram session: %w", err)
	}
	return ts, nil
}

// GetBySessionID retrieves telegram session by session ID
func (r *TelegramSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*state.TelegramSession, error) {
	ts, err := scanTelegramSession(r.db.QueryRow(ctx, getTelegramSessionBySessionIDQuery, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: session %s", state.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("query telegram session by session: %w", err)
	}
	return ts, nil
}

// Set saves telegram session
func (r *TelegramSessionRepository) Set(ctx context.Context, ts *state.TelegramSession) error {
	sessionID := pgtype.Text{String: ts.SessionID, Valid: ts.SessionID != ""}

	_, err := r.db.Exec(ctx, upsertTelegramSessionQuery,
		ts.UserID,
		sessionID,
		StateData(ts),
		pgtype.Timestamp{Time: ts.CreatedAt, Valid: true},
		pgtype.Timestamp{Time: ts.UpdatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("upsert telegram session: %w", err)
	}
	return nil
}

// Delete removes telegram session
func (r *TelegramSessionRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, deleteTelegramSessionQuery, userID); err != nil {
		return fmt.Errorf("delete telegram session: %w", err)
	}
	return nil
}

func scanTelegramSession(row pgx.Row) (*state.TelegramSession, error) {
	var (
		userID    int64
		sessionID pgtype.Text
		data      []byte
		createdAt pgtype.Timestamp
		updatedAt pgtype.Timestamp
	)
	if err := row.Scan(&userID, &sessionID, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return &state.TelegramSession{
		UserID:    userID,
		SessionID: sessionID.String,
		StateData: RawStateData(data),
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
	}, nil
}
