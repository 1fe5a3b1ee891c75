package entity

import (
	"fmt"
	"time"
)

type Flow string

const (
	FlowNone       Flow = ""
	FlowNewWebsite Flow = "newWebsite"
	FlowRedesign   Flow = "redesign"
)

func (f Flow) Validate() error {
	switch f {
	case FlowNewWebsite, FlowRedesign:
		return nil
	default:
		return fmt.Errorf("unknown flow: %q", string(f))
	}
}

// RouteType is the human readable flow name used in notifications and exports.
func (f Flow) RouteType() string {
	switch f {
	case FlowNewWebsite:
		return "New Webpage from Scratch"
	case FlowRedesign:
		return "Webpage Redesign"
	default:
		return "Unknown"
	}
}

// WorkflowPhase identifies exactly one question or terminal state of a flow.
type WorkflowPhase string

const (
	// Entry
	PhaseInitial    WorkflowPhase = "INITIAL"     // Welcome shown, waiting for flow choice
	PhaseUserChoice WorkflowPhase = "USER_CHOICE" // Choice was not understood, asked again

	// New website flow
	PhaseNewWebsiteBusiness                 WorkflowPhase = "NEW_WEBSITE_BUSINESS"
	PhaseNewWebsiteAudience                 WorkflowPhase = "NEW_WEBSITE_AUDIENCE"
	PhaseNewWebsiteGoals                    WorkflowPhase = "NEW_WEBSITE_GOALS"
	PhaseNewWebsitePageType                 WorkflowPhase = "NEW_WEBSITE_PAGE_TYPE"
	PhaseNewWebsiteBrand                    WorkflowPhase = "NEW_WEBSITE_BRAND"
	PhaseNewWebsiteReferencesAndCompetitors WorkflowPhase = "NEW_WEBSITE_REFERENCES_AND_COMPETITORS"
	PhaseNewWebsiteComplete                 WorkflowPhase = "NEW_WEBSITE_COMPLETE"

	// Redesign flow
	PhaseRedesignCurrentURL               WorkflowPhase = "REDESIGN_CURRENT_URL"
	PhaseRedesignReuseContent             WorkflowPhase = "REDESIGN_REUSE_CONTENT"
	PhaseRedesignAudience                 WorkflowPhase = "REDESIGN_AUDIENCE"
	PhaseRedesignIssues                   WorkflowPhase = "REDESIGN_ISSUES"
	PhaseRedesignReferencesAndCompetitors WorkflowPhase = "REDESIGN_REFERENCES_AND_COMPETITORS"
	PhaseRedesignComplete                 WorkflowPhase = "REDESIGN_COMPLETE"
)

// CompletePhase returns the terminal phase of a flow.
func (f Flow) CompletePhase() WorkflowPhase {
	if f == FlowRedesign {
		return PhaseRedesignComplete
	}
	return PhaseNewWebsiteComplete
}

func (p WorkflowPhase) IsComplete() bool {
	return p == PhaseNewWebsiteComplete || p == PhaseRedesignComplete
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// PromptKind tells the presentation layer which interactive prompt a message carries.
type PromptKind string

const (
	PromptNone       PromptKind = ""
	PromptRating     PromptKind = "rating"
	PromptFeedback   PromptKind = "feedback"
	PromptEmail      PromptKind = "email"
	PromptReferences PromptKind = "references"
)

// Message is one transcript entry. Messages are never mutated after append.
type Message struct {
	ID          int64      `json:"id"`
	Text        string     `json:"text"`
	Sender      Sender     `json:"sender"`
	HTMLContent string     `json:"html_content,omitempty"`
	AuditIssues []string   `json:"audit_issues,omitempty"`
	IsAudit     bool       `json:"is_audit,omitempty"`
	Prompt      PromptKind `json:"prompt,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type GenerationStage string

const (
	StageIdle                    GenerationStage = "IDLE"
	StageCapturingScreenshot     GenerationStage = "CAPTURING_SCREENSHOT"
	StageAnalyzingReferences     GenerationStage = "ANALYZING_REFERENCES"
	StageAuditing                GenerationStage = "AUDITING"
	StageGeneratingSpecification GenerationStage = "GENERATING_SPECIFICATION"
	StagePreparingHTML           GenerationStage = "PREPARING_HTML"
	StageGeneratingHTML          GenerationStage = "GENERATING_HTML"
	StageProcessingHTML          GenerationStage = "PROCESSING_HTML"
	StageDone                    GenerationStage = "DONE"
	StageFailed                  GenerationStage = "FAILED"
)

func (s GenerationStage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// Progress is the user visible state of an in-flight generation.
type Progress struct {
	Stage               GenerationStage `json:"stage"`
	Message             string          `json:"message,omitempty"`
	CapturingScreenshot bool            `json:"capturing_screenshot"`
	ScreenshotMessage   string          `json:"screenshot_message,omitempty"`
}

// GenerationOutcome keeps the textual artifacts of the last generation run.
type GenerationOutcome struct {
	Specification string   `json:"specification,omitempty"`
	HTML          string   `json:"html,omitempty"`
	AuditIssues   []string `json:"audit_issues,omitempty"`
	Failed        bool     `json:"failed,omitempty"`
}

// SessionState is the aggregate owned by the conversation controller.
type SessionState struct {
	ID       string `json:"session_id"`
	ClientID string `json:"client_id"`

	Flow          Flow          `json:"flow"`
	Phase         WorkflowPhase `json:"phase"`
	QuestionIndex int           `json:"question_index"`

	Responses     Responses `json:"responses"`
	Messages      []Message `json:"messages"`
	NextMessageID int64     `json:"next_message_id"`

	Busy     bool     `json:"busy"`
	Progress Progress `json:"progress"`

	RatingRequested   bool   `json:"rating_requested"`
	RatingCompleted   bool   `json:"rating_completed"`
	Rating            int    `json:"rating,omitempty"`
	FeedbackRequested bool   `json:"feedback_requested"`
	Feedback          string `json:"feedback,omitempty"`
	EmailRequested    bool   `json:"email_requested"`
	Email             string `json:"email,omitempty"`
	Closed            bool   `json:"closed"`

	Generation GenerationOutcome `json:"generation"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionState returns an empty session positioned at the welcome phase.
func NewSessionState(id, clientID string, now time.Time) *SessionState {
	return &SessionState{
		ID:            id,
		ClientID:      clientID,
		Phase:         PhaseInitial,
		Responses:     NewResponses(),
		NextMessageID: 1,
		Progress:      Progress{Stage: StageIdle},
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Append adds a message with the next monotonic id and returns a copy of it.
func (s *SessionState) Append(m Message) Message {
	if s.NextMessageID <= 0 {
		s.NextMessageID = 1
	}
	m.ID = s.NextMessageID
	s.NextMessageID++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.Messages = append(s.Messages, m)
	return m
}

func (s *SessionState) AppendBot(text string) Message {
	return s.Append(Message{Text: text, Sender: SenderBot})
}

func (s *SessionState) AppendUser(text string) Message {
	return s.Append(Message{Text: text, Sender: SenderUser})
}

// MessagesSince returns messages with id greater than afterID.
func (s *SessionState) MessagesSince(afterID int64) []Message {
	out := make([]Message, 0)
	for _, m := range s.Messages {
		if m.ID > afterID {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.Responses = s.Responses.Clone()
	c.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		if m.AuditIssues != nil {
			m.AuditIssues = append([]string(nil), m.AuditIssues...)
		}
		c.Messages[i] = m
	}
	if s.Generation.AuditIssues != nil {
		c.Generation.AuditIssues = append([]string(nil), s.Generation.AuditIssues...)
	}
	return &c
}
