package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	getCounterQuery = `SELECT completed FROM session_counters WHERE client_id = $1`

	incrementCounterQuery = `
INSERT INTO session_counters (client_id, completed, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (client_id) DO UPDATE
SET completed = session_counters.completed + 1, updated_at = NOW()
RETURNING completed`

	isNotifiedQuery   = `SELECT EXISTS (SELECT 1 FROM session_notifications WHERE session_id = $1)`
	markNotifiedQuery = `INSERT INTO session_notifications (session_id) VALUES ($1) ON CONFLICT (session_id) DO NOTHING`
)

// CounterPostgres keeps per client session counters and the notification log.
// Both outlive the sessions they describe.
type CounterPostgres struct {
	db *pgxpool.Pool
}

func NewCounterPostgres(db *pgxpool.Pool) *CounterPostgres {
	return &CounterPostgres{db: db}
}

func (r *CounterPostgres) Count(ctx context.Context, clientID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, getCounterQuery, clientID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query session counter: %w", err)
	}
	return count, nil
}

func (r *CounterPostgres) Increment(ctx context.Context, clientID string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, incrementCounterQuery, clientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment session counter: %w", err)
	}
	return count, nil
}

func (r *CounterPostgres) IsNotified(ctx context.Context, sessionID string) (bool, error) {
	var notified bool
	if err := r.db.QueryRow(ctx, isNotifiedQuery, sessionID).Scan(&notified); err != nil {
		return false, fmt.Errorf("query notification flag: %w", err)
	}
	return notified, nil
}

func (r *CounterPostgres) MarkNotified(ctx context.Context, sessionID string) error {
	if _, err := r.db.Exec(ctx, markNotifiedQuery, sessionID); err != nil {
		return fmt.Errorf("mark session notified: %w", err)
	}
	return nil
}
