package conversation

import (
	"github.com/futig/design-agent/internal/entity"
)

func (uc *ConversationUsecase) view(s *entity.SessionState, completed int) *entity.SessionView {
	v := BuildView(uc.catalog, s, completed >= uc.cfg.SessionLimit)
	return &v
}

// BuildView derives everything the presentation layer renders from one session.
func BuildView(c *Catalog, s *entity.SessionState, limitReached bool) entity.SessionView {
	v := entity.SessionView{
		SessionID:           s.ID,
		Flow:                s.Flow,
		Phase:               s.Phase,
		Messages:            append([]entity.Message(nil), s.Messages...),
		Placeholder:         CurrentPlaceholder(c, s),
		Options:             CurrentOptions(c, s),
		Selected:            SelectedLabels(c, s),
		Widget:              CurrentWidget(c, s),
		ShowChoiceWidget:    ShowChoiceWidget(c, s),
		ShowFreeTextWidget:  ShowFreeTextWidget(c, s),
		IsBusy:              s.Busy,
		SessionClosed:       s.Closed,
		SessionLimitReached: limitReached,
		HasHTML:             s.Generation.HTML != "",
	}
	if s.Busy {
		v.GenerationProgressMessage = s.Progress.Message
		v.IsCapturingScreenshot = s.Progress.CapturingScreenshot
		v.ScreenshotProgressMessage = s.Progress.ScreenshotMessage
	}
	if q, ok := questionOf(c, s); ok {
		v.MultiSelect = q.Kind == InputMultiChoice
	}
	return v
}

func questionOf(c *Catalog, s *entity.SessionState) (Question, bool) {
	if s.Flow == entity.FlowNone || s.Phase.IsComplete() {
		return Question{}, false
	}
	q, err := c.At(s.Flow, s.QuestionIndex)
	if err != nil || q.Phase != s.Phase {
		return Question{}, false
	}
	return q, true
}

// CurrentPlaceholder is the hint of the free text input.
func CurrentPlaceholder(c *Catalog, s *entity.SessionState) string {
	if s.Responses.WaitingForOtherInput != "" {
		return placeholderOther
	}
	if s.Phase.IsComplete() {
		switch pendingPrompt(s) {
		case entity.PromptEmail:
			return placeholderEmail
		case entity.PromptFeedback:
			return placeholderFeedbk
		}
	}
	if q, ok := questionOf(c, s); ok && q.Placeholder != "" {
		return q.Placeholder
	}
	return placeholderDefault
}

// CurrentOptions lists the buttons to offer. It is empty while an "Other" answer is awaited.
func CurrentOptions(c *Catalog, s *entity.SessionState) []string {
	if s.Busy || s.Closed || s.Responses.WaitingForOtherInput != "" {
		return nil
	}
	if s.Phase == entity.PhaseInitial || s.Phase == entity.PhaseUserChoice {
		return append([]string(nil), QuickActions...)
	}

	q, ok := questionOf(c, s)
	if !ok {
		return nil
	}
	switch q.Kind {
	case InputYesNo:
		return []string{OptionYes, OptionNo}
	case InputSingleChoice, InputMultiChoice:
		options := append([]string(nil), q.Options...)
		if q.DoneOption != "" {
			options = append(options, q.DoneOption)
		}
		return options
	case InputText:
		if q.NoneOption != "" {
			return []string{q.NoneOption}
		}
	}
	return nil
}

// ShowChoiceWidget reports whether choice buttons are rendered.
func ShowChoiceWidget(c *Catalog, s *entity.SessionState) bool {
	q, ok := questionOf(c, s)
	if !ok || s.Busy || s.Responses.WaitingForOtherInput != "" {
		return false
	}
	switch q.Kind {
	case InputSingleChoice, InputMultiChoice, InputYesNo:
		return true
	case InputText:
		return q.NoneOption != ""
	}
	return false
}

// ShowFreeTextWidget reports whether the text box accepts input.
func ShowFreeTextWidget(c *Catalog, s *entity.SessionState) bool {
	if s.Busy || s.Closed {
		return false
	}
	if s.Phase.IsComplete() {
		p := pendingPrompt(s)
		return p == entity.PromptFeedback || p == entity.PromptEmail
	}
	if s.Responses.WaitingForOtherInput != "" {
		return true
	}
	q, ok := questionOf(c, s)
	if !ok {
		return s.Flow == entity.FlowNone
	}
	switch q.Kind {
	case InputText, InputURL, InputMultiChoice:
		return true
	}
	return false
}

// SelectedLabels returns the multi-select labels currently chosen, with "Other: x" shown as "Other".
func SelectedLabels(c *Catalog, s *entity.SessionState) []string {
	q, ok := questionOf(c, s)
	if !ok || q.Kind != InputMultiChoice {
		return nil
	}
	return DisplayMultiSelect(ParseMultiSelect(s.Responses.String(q.Field)))
}

// CurrentWidget names the input control for the current position.
func CurrentWidget(c *Catalog, s *entity.SessionState) entity.InputWidget {
	if s.Busy || s.Closed {
		return entity.WidgetNone
	}
	if s.Phase.IsComplete() {
		switch pendingPrompt(s) {
		case entity.PromptRating:
			return entity.WidgetRating
		case entity.PromptFeedback:
			return entity.WidgetFeedback
		case entity.PromptEmail:
			return entity.WidgetEmail
		}
		return entity.WidgetNone
	}
	if s.Responses.WaitingForOtherInput != "" {
		return entity.WidgetText
	}
	if q, ok := questionOf(c, s); ok {
		switch q.Kind {
		case InputEntries:
			return entity.WidgetReferences
		case InputSingleChoice, InputMultiChoice, InputYesNo:
			return entity.WidgetChoice
		}
	}
	return entity.WidgetText
}

// pendingPrompt returns the lifecycle prompt that still waits for an answer.
func pendingPrompt(s *entity.SessionState) entity.PromptKind {
	switch {
	case s.RatingRequested && !s.RatingCompleted:
		return entity.PromptRating
	case s.FeedbackRequested && s.Feedback == "":
		return entity.PromptFeedback
	case s.EmailRequested && s.Email == "":
		return entity.PromptEmail
	}
	return entity.PromptNone
}
