package entity

type StartSessionRequest struct {
	ClientID string `json:"client_id"`
}

type SubmitTextRequest struct {
	Text string `json:"text"`
}

type SubmitChoiceRequest struct {
	Label string `json:"label"`
}

type SubmitReferencesRequest struct {
	Entries []ReferenceEntry `json:"entries"`
	None    bool             `json:"none"`
}

type SubmitRatingRequest struct {
	Score int `json:"score"`
}

type SubmitFeedbackRequest struct {
	Text string `json:"text"`
}

type SubmitEmailRequest struct {
	Email string `json:"email"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// InputWidget tells the presentation layer which input control to render.
type InputWidget string

const (
	WidgetNone       InputWidget = "none"
	WidgetText       InputWidget = "text"
	WidgetChoice     InputWidget = "choice"
	WidgetReferences InputWidget = "references"
	WidgetRating     InputWidget = "rating"
	WidgetFeedback   InputWidget = "feedback"
	WidgetEmail      InputWidget = "email"
)

// SessionView is the derived read model of one session.
type SessionView struct {
	SessionID   string        `json:"session_id"`
	Flow        Flow          `json:"flow,omitempty"`
	Phase       WorkflowPhase `json:"phase"`
	Messages    []Message     `json:"messages"`
	Placeholder string        `json:"placeholder,omitempty"`
	Options     []string      `json:"options,omitempty"`
	MultiSelect bool          `json:"multi_select,omitempty"`
	Selected    []string      `json:"selected,omitempty"`
	Widget      InputWidget   `json:"widget"`

	ShowChoiceWidget   bool `json:"show_choice_widget"`
	ShowFreeTextWidget bool `json:"show_free_text_widget"`

	IsBusy                    bool   `json:"is_busy"`
	GenerationProgressMessage string `json:"generation_progress_message,omitempty"`
	IsCapturingScreenshot     bool   `json:"is_capturing_screenshot"`
	ScreenshotProgressMessage string `json:"screenshot_progress_message,omitempty"`
	SessionClosed             bool   `json:"session_closed"`
	SessionLimitReached       bool   `json:"session_limit_reached"`
	HasHTML                   bool   `json:"has_html"`
}
