package conversation

import (
	"context"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/usecase/generation"
)

type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*entity.SessionState, error)
	Save(ctx context.Context, session *entity.SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionCounter counts completed sessions per client. It outlives session resets.
type SessionCounter interface {
	Count(ctx context.Context, clientID string) (int, error)
	Increment(ctx context.Context, clientID string) (int, error)
}

type Notifier interface {
	NotifySessionComplete(ctx context.Context, record entity.SessionRecord) error
}

type Generator interface {
	Run(ctx context.Context, req generation.Request, sink generation.Sink) generation.Result
}

type Publisher interface {
	Publish(event entity.SessionEvent)
}
