package keyboard

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback actions
const (
	ActionOption  = "opt"     // value: <prompt message id>.<option index>
	ActionRate    = "rate"    // value: 1..5
	ActionRefs    = "refs"    // value: submit | none
	ActionSummary = "sum"     // value: pdf
	ActionChat    = "chat"    // value: new
	ActionConfirm = "confirm" // value: cancel | continue
)

const (
	RefsSubmit      = "submit"
	RefsNone        = "none"
	ChatNew         = "new"
	ConfirmCancel   = "cancel"
	ConfirmContinue = "continue"
)

// CallbackData represents parsed callback data
type CallbackData struct {
	Action string
	Value  string
}

// ParseCallback parses callback data string
func ParseCallback(data string) (*CallbackData, error) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, fmt.Errorf("invalid callback format: %s", data)
	}

	return &CallbackData{
		Action: parts[0],
		Value:  parts[1],
	}, nil
}

// EncodeCallback creates callback data string
func EncodeCallback(action, value string) string {
	return fmt.Sprintf("%s:%s", action, value)
}

// EncodeOption references an option by position. Labels can exceed the 64 byte callback limit.
func EncodeOption(promptID int64, index int) string {
	return EncodeCallback(ActionOption, fmt.Sprintf("%d.%d", promptID, index))
}

// ParseOption is the inverse of EncodeOption.
func ParseOption(value string) (promptID int64, index int, err error) {
	p, i, ok := strings.Cut(value, ".")
	if !ok {
		return 0, 0, fmt.Errorf("invalid option value: %s", value)
	}
	if promptID, err = strconv.ParseInt(p, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid option prompt: %w", err)
	}
	if index, err = strconv.Atoi(i); err != nil || index < 0 {
		return 0, 0, fmt.Errorf("invalid option index: %s", i)
	}
	return promptID, index, nil
}
