package conversation

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/validator"
)

// Action is what the controller does with a processed answer.
type Action int

const (
	// ActionReject re-prompts. Responses are untouched and the flow does not move.
	ActionReject Action = iota
	// ActionSuspend waits for the free text behind an "Other" choice.
	ActionSuspend
	// ActionToggle updates a multi-select silently without moving.
	ActionToggle
	// ActionAdvance stores the answer and moves to the next question.
	ActionAdvance
)

func (a Action) String() string {
	switch a {
	case ActionReject:
		return "reject"
	case ActionSuspend:
		return "suspend"
	case ActionToggle:
		return "toggle"
	case ActionAdvance:
		return "advance"
	default:
		return "unknown"
	}
}

// Answer is one user submission for the current question.
type Answer struct {
	Text string
	// Structured is set for reference widget submissions.
	Structured bool
	Entries    []entity.ReferenceEntry
	None       bool
}

// Outcome is the result of processing one answer.
type Outcome struct {
	Action Action
	// Echo is the user message to append, empty for silent toggles.
	Echo string
	// Reply is a bot message to append after Echo.
	Reply string
	// Responses holds the updated answer set for every action except ActionReject.
	Responses entity.Responses
}

// Processor validates and normalizes answers. It never touches the transcript or the position itself.
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

// Process applies q's rules to answer given the current responses.
// A FlowIntegrityError is returned when the suspended "Other" field does not belong to q.
func (p *Processor) Process(q Question, responses entity.Responses, answer Answer) (Outcome, error) {
	text := strings.TrimSpace(answer.Text)
	echo := text

	if waiting := responses.WaitingForOtherInput; waiting != "" {
		if waiting != q.Field || q.Other == nil {
			return Outcome{}, &entity.FlowIntegrityError{
				Reason: fmt.Sprintf("waiting for %s while asking %s", waiting, q.Field),
				Index:  -1,
			}
		}
		return p.processOther(q, responses, text), nil
	}

	switch q.Kind {
	case InputText:
		return p.processText(q, responses, text), nil
	case InputURL:
		return p.processURL(q, responses, text), nil
	case InputYesNo:
		next := responses.Clone()
		next.SetBool(q.Field, isYes(text))
		return advance(echo, next), nil
	case InputSingleChoice:
		return p.processSingleChoice(q, responses, text), nil
	case InputMultiChoice:
		return p.processMultiChoice(q, responses, text), nil
	case InputEntries:
		return p.processEntries(q, responses, answer), nil
	default:
		return Outcome{}, &entity.FlowIntegrityError{Index: -1, Reason: fmt.Sprintf("unknown input kind %q", q.Kind)}
	}
}

func (p *Processor) processOther(q Question, responses entity.Responses, text string) Outcome {
	if isOther(text) {
		return reject(text, q.Other.Again)
	}
	if text == "" {
		return reject("", q.Other.Empty)
	}

	clean, err := validator.ValidateText(text, validator.MaxTextLength)
	if err != nil {
		return reject(text, fmt.Sprintf(msgTooLong, validator.MaxTextLength))
	}

	next := responses.Clone()
	value := otherPrefix + clean
	if q.Kind == InputMultiChoice {
		value = JoinMultiSelect(append(ParseMultiSelect(next.String(q.Field)), value))
	}
	next.SetText(q.Field, value)
	next.WaitingForOtherInput = ""

	return advance(text, next)
}

func (p *Processor) processText(q Question, responses entity.Responses, text string) Outcome {
	next := responses.Clone()
	if q.NoneOption != "" && isNone(text) {
		next.SetText(q.Field, "")
		return advance(text, next)
	}

	clean, err := validator.ValidateText(text, validator.MaxTextLength)
	switch {
	case errors.Is(err, entity.ErrMissingField):
		return reject(text, q.EmptyMessage)
	case err != nil:
		return reject(text, fmt.Sprintf(msgTooLong, validator.MaxTextLength))
	}

	next.SetText(q.Field, clean)
	return advance(text, next)
}

// processURL accepts an empty answer as "no webpage". Anything else must contain a public URL.
func (p *Processor) processURL(q Question, responses entity.Responses, text string) Outcome {
	next := responses.Clone()
	if text == "" {
		next.SetText(q.Field, "")
		return advance("", next)
	}

	normalized := validator.NormalizeURL(validator.SanitizeText(text))
	urls := validator.ExtractURLs(normalized)
	if len(urls) == 0 {
		return reject(text, q.EmptyMessage)
	}

	target := validator.NormalizeURL(urls[0])
	if err := validator.CheckSafeURL(target); err != nil {
		return reject(text, msgUnsafeURL)
	}

	next.SetText(q.Field, target)
	return advance(text, next)
}

func (p *Processor) processSingleChoice(q Question, responses entity.Responses, text string) Outcome {
	if text == "" {
		return reject("", q.EmptyMessage)
	}
	if q.HasOther() && isOther(text) {
		return suspend(text, q, responses)
	}

	clean, err := validator.ValidateText(text, validator.MaxTextLength)
	if err != nil {
		return reject(text, fmt.Sprintf(msgTooLong, validator.MaxTextLength))
	}

	next := responses.Clone()
	next.SetText(q.Field, clean)
	return advance(text, next)
}

func (p *Processor) processMultiChoice(q Question, responses entity.Responses, text string) Outcome {
	current := responses.String(q.Field)

	switch {
	case text == "":
		return reject("", q.EmptyMessage)
	case q.DoneOption != "" && text == q.DoneOption:
		if len(ParseMultiSelect(current)) == 0 {
			return reject(text, q.EmptyMessage)
		}
		return advance(text, responses.Clone())
	case q.HasOther() && isOther(text):
		return suspend(text, q, responses)
	case slices.Contains(q.Options, text):
		next := responses.Clone()
		next.SetText(q.Field, ToggleMultiSelect(current, text))
		return Outcome{Action: ActionToggle, Responses: next}
	}

	clean, err := validator.ValidateText(text, validator.MaxTextLength)
	if err != nil {
		return reject(text, fmt.Sprintf(msgTooLong, validator.MaxTextLength))
	}

	next := responses.Clone()
	next.SetText(q.Field, clean)
	return advance(text, next)
}

// processEntries only accepts structured submissions. Empty free text is not "none".
func (p *Processor) processEntries(q Question, responses entity.Responses, answer Answer) Outcome {
	if !answer.Structured {
		return reject(strings.TrimSpace(answer.Text), q.EmptyMessage)
	}

	next := responses.Clone()
	if answer.None {
		next.SetEntries(q.Field, nil)
		next.SetText(q.Field, "")
		return advance(OptionNone, next)
	}

	if len(answer.Entries) == 0 {
		return reject("", q.EmptyMessage)
	}

	entries, err := validator.ValidateReferenceEntries(answer.Entries)
	if err != nil {
		return reject("", fmt.Sprintf(msgBadReference, err))
	}

	formatted := FormatReferences(entries)
	next.SetEntries(q.Field, entries)
	next.SetText(q.Field, formatted)
	return advance(formatted, next)
}

func reject(echo, reply string) Outcome {
	return Outcome{Action: ActionReject, Echo: echo, Reply: reply}
}

func suspend(echo string, q Question, responses entity.Responses) Outcome {
	next := responses.Clone()
	next.WaitingForOtherInput = q.Field
	return Outcome{Action: ActionSuspend, Echo: echo, Reply: q.Other.Prompt, Responses: next}
}

func advance(echo string, next entity.Responses) Outcome {
	return Outcome{Action: ActionAdvance, Echo: echo, Responses: next}
}
