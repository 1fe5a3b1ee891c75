package handlers

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/telegram/keyboard"
	"github.com/futig/design-agent/internal/telegram/state"
)

// Handler state constants
const (
	HandlerStateCallback   = "CALLBACK"
	HandlerStateText       = "TEXT"
	HandlerStateReferences = "REFERENCES"
)

// Message represents a normalized Telegram message
type Message struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	Text         string
	CallbackData string
	CallbackID   string

	// SessionID and View describe the bound session when the message is routed to a state handler
	SessionID string
	View      *entity.SessionView
}

// Handler defines the interface for state-specific handlers
type Handler interface {
	// Handle processes a message for this state
	Handle(ctx context.Context, msg *Message) error

	// GetState returns the state this handler manages
	GetState() string
}

// Deps are shared by every handler
type Deps struct {
	Sender       *MessageSender
	States       *state.Manager
	Conversation ConversationUsecase
	Exporter     Exporter
	Keyboard     *keyboard.Builder
	Transcript   *Transcript
	Relay        *ProgressRelay
	Logger       *zap.Logger
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	stateName string
	deps      *Deps
}

// GetState implements Handler
func (h *BaseHandler) GetState() string {
	return h.stateName
}

// sendMessage is a convenience wrapper for messageSender.Send
func (h *BaseHandler) sendMessage(chatID int64, text string, markup interface{}) {
	_ = h.deps.Sender.Send(chatID, text, markup)
}

// session returns the bound session id of the user, empty when there is none
func (h *BaseHandler) session(ctx context.Context, userID int64) (string, error) {
	ts, err := h.deps.States.GetSession(ctx, userID)
	if err != nil {
		return "", err
	}
	return ts.SessionID, nil
}

// validStates defines all valid handler states
var validStates = map[string]bool{
	HandlerStateCallback:   true,
	HandlerStateText:       true,
	HandlerStateReferences: true,
}

// IsValidState checks if a state is valid for handler registration
func IsValidState(state string) bool {
	_, ok := validStates[state]
	return ok
}

// ClientID is the session cap key of a Telegram user
func ClientID(userID int64) string {
	return "tg-" + strconv.FormatInt(userID, 10)
}
