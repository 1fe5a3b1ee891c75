package handlers

import (
	"context"
	"errors"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/logger"
	"github.com/futig/design-agent/internal/telegram/render"
	"github.com/futig/design-agent/internal/telegram/state"
)

// startSession opens a fresh session for the user. With previous set the old session is replaced
// through NewChat so it is not left behind in storage.
func (h *BaseHandler) startSession(ctx context.Context, userID, chatID int64, previous string) error {
	var (
		view *entity.SessionView
		err  error
	)
	if previous != "" {
		view, err = h.deps.Conversation.NewChat(ctx, previous)
		if errors.Is(err, entity.ErrSessionNotFound) {
			view, err = h.deps.Conversation.StartSession(ctx, ClientID(userID))
		}
	} else {
		view, err = h.deps.Conversation.StartSession(ctx, ClientID(userID))
	}
	if err != nil {
		return err
	}

	ctx = logger.WithSession(ctx, view.SessionID)

	if err := h.deps.States.BindSession(ctx, userID, chatID, view.SessionID); err != nil {
		return err
	}
	if previous != "" {
		h.deps.Relay.Unwatch(previous)
	}
	if err := h.deps.Relay.Watch(view.SessionID); err != nil {
		ctxzap.Warn(ctx, "failed to follow session progress", zap.Error(err))
	}

	ctxzap.Info(ctx, "telegram session started", zap.Int64("user_id", userID))
	return h.deps.Transcript.Sync(ctx, userID, view)
}

// closeSession unbinds the user from its session
func (h *BaseHandler) closeSession(ctx context.Context, userID, chatID int64) error {
	sessionID, err := h.session(ctx, userID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return err
	}
	if sessionID == "" {
		h.sendMessage(chatID, render.MsgNoSession, nil)
		return nil
	}

	h.deps.Relay.Unwatch(sessionID)
	if err := h.deps.States.DeleteSession(ctx, userID); err != nil {
		return err
	}

	ctxzap.Info(ctx, "telegram session closed",
		zap.Int64("user_id", userID),
		zap.String("session_id", sessionID),
	)
	h.sendMessage(chatID, render.MsgCancelled, nil)
	return nil
}

// sync delivers the outcome of a usecase call
func (h *BaseHandler) sync(ctx context.Context, msg *Message, view *entity.SessionView, err error) error {
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}
	return h.deps.Transcript.Sync(ctx, msg.UserID, view)
}

// CommandHandler serves /start, /help and /cancel
type CommandHandler struct {
	BaseHandler
}

func NewCommandHandler(deps *Deps) *CommandHandler {
	return &CommandHandler{BaseHandler{deps: deps}}
}

// Start begins a new session, replacing the current one
func (h *CommandHandler) Start(ctx context.Context, msg *Message) error {
	previous, err := h.session(ctx, msg.UserID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return err
	}

	if err := h.startSession(ctx, msg.UserID, msg.ChatID, previous); err != nil {
		h.HandleError(ctx, msg.ChatID, err)
	}
	return nil
}

func (h *CommandHandler) Help(_ context.Context, msg *Message) error {
	h.sendMessage(msg.ChatID, render.MsgHelp, nil)
	return nil
}

// Cancel asks for confirmation, the callback handler performs it
func (h *CommandHandler) Cancel(ctx context.Context, msg *Message) error {
	sessionID, err := h.session(ctx, msg.UserID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return err
	}
	if sessionID == "" {
		h.sendMessage(msg.ChatID, render.MsgNoSession, nil)
		return nil
	}

	h.sendMessage(msg.ChatID, render.MsgCancelConfirm, h.deps.Keyboard.CancelConfirmKeyboard())
	return nil
}
