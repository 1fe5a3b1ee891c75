package entity

type SessionEventType string

const (
	EventProgress SessionEventType = "progress"
	EventMessage  SessionEventType = "message"
	EventState    SessionEventType = "state"
)

// SessionEvent is pushed to live subscribers of a session.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID string           `json:"session_id"`
	Progress  *Progress        `json:"progress,omitempty"`
	Message   *Message         `json:"message,omitempty"`
	Busy      bool             `json:"busy"`
	Closed    bool             `json:"closed"`
}
