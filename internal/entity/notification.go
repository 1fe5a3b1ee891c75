package entity

import "time"

// SessionRecord is the notification payload sent when a session closes.
type SessionRecord struct {
	SessionID      string
	Flow           Flow
	StartedAt      time.Time
	Email          string
	Responses      Responses
	AuditIssues    []string
	Rating         int
	Feedback       string
	GenerationFail bool
}

// NewSessionRecord snapshots the notification relevant part of a session.
func NewSessionRecord(s *SessionState) SessionRecord {
	return SessionRecord{
		SessionID:      s.ID,
		Flow:           s.Flow,
		StartedAt:      s.StartedAt,
		Email:          s.Email,
		Responses:      s.Responses.Clone(),
		AuditIssues:    append([]string(nil), s.Generation.AuditIssues...),
		Rating:         s.Rating,
		Feedback:       s.Feedback,
		GenerationFail: s.Generation.Failed,
	}
}

// ChatCardMessage is a Google Chat cardsV2 webhook message.
type ChatCardMessage struct {
	CardsV2 []ChatCardWrapper `json:"cardsV2"`
}

type ChatCardWrapper struct {
	CardID string   `json:"cardId"`
	Card   ChatCard `json:"card"`
}

type ChatCard struct {
	Header   ChatCardHeader    `json:"header"`
	Sections []ChatCardSection `json:"sections"`
}

type ChatCardHeader struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

type ChatCardSection struct {
	Header      string           `json:"header,omitempty"`
	Collapsible bool             `json:"collapsible,omitempty"`
	Widgets     []ChatCardWidget `json:"widgets"`
}

type ChatCardWidget struct {
	DecoratedText *ChatDecoratedText `json:"decoratedText,omitempty"`
	TextParagraph *ChatTextParagraph `json:"textParagraph,omitempty"`
}

type ChatDecoratedText struct {
	TopLabel string `json:"topLabel"`
	Text     string `json:"text"`
	WrapText bool   `json:"wrapText"`
}

type ChatTextParagraph struct {
	Text string `json:"text"`
}
