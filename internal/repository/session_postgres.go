package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futig/design-agent/internal/entity"
)

const (
	getSessionQuery = `SELECT state FROM chat_sessions WHERE id = $1`

	// Older snapshots never overwrite newer ones; asynchronous saves may arrive out of order.
	upsertSessionQuery = `
INSERT INTO chat_sessions (id, client_id, state, started_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
WHERE chat_sessions.updated_at <= EXCLUDED.updated_at`

	deleteSessionQuery = `DELETE FROM chat_sessions WHERE id = $1`
)

// SessionPostgres stores session snapshots as JSONB documents.
type SessionPostgres struct {
	db *pgxpool.Pool
}

func NewSessionPostgres(db *pgxpool.Pool) *SessionPostgres {
	return &SessionPostgres{db: db}
}

func (r *SessionPostgres) Load(ctx context.Context, sessionID string) (*entity.SessionState, error) {
	var data []byte
	err := r.db.QueryRow(ctx, getSessionQuery, sessionID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	return DecodeSession(sessionID, data)
}

func (r *SessionPostgres) Save(ctx context.Context, session *entity.SessionState) error {
	data, err := EncodeSession(session)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, upsertSessionQuery,
		session.ID,
		session.ClientID,
		data,
		session.StartedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionPostgres) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.Exec(ctx, deleteSessionQuery, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
