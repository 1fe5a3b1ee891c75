package repository

import (
	"encoding/json"
	"fmt"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/telegram/state"
)

// EncodeSession serializes the session snapshot stored in the state column.
func EncodeSession(s *entity.SessionState) ([]byte, error) {
	if s == nil || s.ID == "" {
		return nil, fmt.Errorf("%w: session id is required", entity.ErrInvalidParameter)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

// DecodeSession restores a session snapshot. Rows that do not decode are reported as errors.
func DecodeSession(id string, data []byte) (*entity.SessionState, error) {
	var s entity.SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.ID != id {
		return nil, fmt.Errorf("decode session %s: stored id %q does not match", id, s.ID)
	}
	s.Responses = s.Responses.Clone()
	if s.NextMessageID == 0 {
		s.NextMessageID = 1
		if n := len(s.Messages); n > 0 {
			s.NextMessageID = s.Messages[n-1].ID + 1
		}
	}
	return &s, nil
}

// StateData returns a non-empty JSON document for the state_data column.
func StateData(ts *state.TelegramSession) []byte {
	if len(ts.StateData) == 0 {
		return []byte("{}")
	}
	return []byte(ts.StateData)
}

func RawStateData(data []byte) json.RawMessage {
	if len(data) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(data)
}
