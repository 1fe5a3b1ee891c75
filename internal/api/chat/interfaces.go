package chat

import (
	"context"

	"github.com/futig/design-agent/internal/entity"
)

type ConversationUsecase interface {
	StartSession(ctx context.Context, clientID string) (*entity.SessionView, error)
	NewChat(ctx context.Context, sessionID string) (*entity.SessionView, error)
	GetSession(ctx context.Context, sessionID string) (*entity.SessionView, error)
	Snapshot(ctx context.Context, sessionID string) (*entity.SessionState, error)
	SubmitFreeText(ctx context.Context, sessionID, text string) (*entity.SessionView, error)
	SubmitChoice(ctx context.Context, sessionID, label string) (*entity.SessionView, error)
	SubmitStructuredEntries(ctx context.Context, sessionID string, entries []entity.ReferenceEntry, none bool) (*entity.SessionView, error)
	SubmitRating(ctx context.Context, sessionID string, score int) (*entity.SessionView, error)
	SubmitFeedback(ctx context.Context, sessionID, text string) (*entity.SessionView, error)
	SubmitEmail(ctx context.Context, sessionID, email string) (*entity.SessionView, error)
	LimitMessage() string
}

type Exporter interface {
	Export(format entity.ResultFormat, session *entity.SessionState) (*entity.Summary, error)
}

type EventSource interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan entity.SessionEvent, error)
}
