package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Manager manages telegram sessions
type Manager struct {
	storage Storage
	locks   sync.Map
}

// NewManager creates a new state manager
func NewManager(storage Storage) *Manager {
	return &Manager{
		storage: storage,
	}
}

// Lock serializes updates of one user. Progress events and user input race otherwise.
func (m *Manager) Lock(userID int64) func() {
	v, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// GetSession retrieves telegram session from storage
func (m *Manager) GetSession(ctx context.Context, userID int64) (*TelegramSession, error) {
	session, err := m.storage.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get telegram session from storage: %w", err)
	}

	return session, nil
}

// SetSession saves telegram session to storage
func (m *Manager) SetSession(ctx context.Context, session *TelegramSession) error {
	session.UpdatedAt = time.Now()

	if err := m.storage.Set(ctx, session); err != nil {
		return fmt.Errorf("save telegram session to storage: %w", err)
	}

	return nil
}

// DeleteSession removes telegram session from storage
func (m *Manager) DeleteSession(ctx context.Context, userID int64) error {
	if err := m.storage.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete telegram session from storage: %w", err)
	}

	return nil
}

// GetStateData extracts typed state data
func (m *Manager) GetStateData(ctx context.Context, userID int64) (*StateData, error) {
	session, err := m.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return DecodeStateData(session.StateData)
}

// Load returns the session and its decoded state data in one read
func (m *Manager) Load(ctx context.Context, userID int64) (*TelegramSession, *StateData, error) {
	session, err := m.GetSession(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	data, err := DecodeStateData(session.StateData)
	if err != nil {
		return nil, nil, err
	}
	return session, data, nil
}

// UpdateStateData updates state data
func (m *Manager) UpdateStateData(ctx context.Context, userID int64, data *StateData) error {
	session, err := m.GetSession(ctx, userID)
	if err != nil {
		return err
	}

	// Ensure version is set to current version
	data.Version = StateDataCurrentVersion

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal state data: %w", err)
	}

	session.StateData = jsonData
	return m.SetSession(ctx, session)
}

// BindSession points the user at sessionID and resets the UI state.
func (m *Manager) BindSession(ctx context.Context, userID, chatID int64, sessionID string) error {
	session, err := m.GetSession(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		session = &TelegramSession{
			UserID:    userID,
			CreatedAt: time.Now(),
		}
	}

	data, err := json.Marshal(&StateData{Version: StateDataCurrentVersion, ChatID: chatID})
	if err != nil {
		return fmt.Errorf("marshal state data: %w", err)
	}

	session.SessionID = sessionID
	session.StateData = data
	return m.SetSession(ctx, session)
}

// GetBySessionID retrieves telegram session by session ID
func (m *Manager) GetBySessionID(ctx context.Context, sessionID string) (*TelegramSession, error) {
	return m.storage.GetBySessionID(ctx, sessionID)
}

// DecodeStateData parses stored UI state. Documents of older versions are reset.
func DecodeStateData(raw json.RawMessage) (*StateData, error) {
	if len(raw) == 0 {
		return &StateData{Version: StateDataCurrentVersion}, nil
	}

	var data StateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal state data: %w", err)
	}

	// Version 1 documents belong to a previous bot and carry nothing reusable
	if data.Version < StateDataCurrentVersion {
		data = StateData{Version: StateDataCurrentVersion, ChatID: data.ChatID}
	}

	return &data, nil
}
