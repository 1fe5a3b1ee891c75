package state

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/futig/design-agent/internal/entity"
)

var ErrNotFound = errors.New("telegram session not found")

// TelegramSession represents telegram user -> session mapping with UI state
type TelegramSession struct {
	UserID    int64           `json:"user_id"`
	SessionID string          `json:"session_id,omitempty"`
	StateData json.RawMessage `json:"state_data,omitempty"` // Telegram-specific UI state
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StateData contains telegram-specific UI state (stored in StateData JSONB)
// Version 2: design questionnaire
type StateData struct {
	Version int `json:"version,omitempty"`

	// ChatID the bot writes to; equals the user id in private chats.
	ChatID int64 `json:"chat_id,omitempty"`

	// LastDeliveredID is the newest transcript message already sent to the chat.
	LastDeliveredID int64 `json:"last_delivered_id,omitempty"`

	// StatusMessageID is the message edited with generation progress.
	StatusMessageID int    `json:"status_message_id,omitempty"`
	LastProgress    string `json:"last_progress,omitempty"`

	// KeyboardMessageID carries the inline keyboard of the transcript message KeyboardPromptID.
	KeyboardMessageID int   `json:"keyboard_message_id,omitempty"`
	KeyboardPromptID  int64 `json:"keyboard_prompt_id,omitempty"`

	// PendingReferences collects "url - description" lines until they are submitted.
	PendingReferences []entity.ReferenceEntry `json:"pending_references,omitempty"`
}

const (
	// StateDataCurrentVersion is the current version of StateData
	StateDataCurrentVersion = 2
)

// Storage defines the interface for telegram session persistence
type Storage interface {
	// Get retrieves telegram session by user ID
	Get(ctx context.Context, userID int64) (*TelegramSession, error)

	// Set saves telegram session
	Set(ctx context.Context, session *TelegramSession) error

	// Delete removes telegram session
	Delete(ctx context.Context, userID int64) error

	// GetBySessionID retrieves telegram session by session ID
	GetBySessionID(ctx context.Context, sessionID string) (*TelegramSession, error)
}
