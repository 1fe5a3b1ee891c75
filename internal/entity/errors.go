package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Session errors
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session is closed")
	ErrSessionBusy         = errors.New("generation is in progress")
	ErrSessionLimitReached = errors.New("session limit reached")
	ErrWrongInput          = errors.New("input is not expected in current phase")
	ErrNoResult            = errors.New("session result not available")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnsafeURL        = errors.New("url targets a forbidden host")
)

// ValidationError is a recoverable answer rejection. Message is shown to the user as a re-prompt.
type ValidationError struct {
	Field   ResponseField
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation %s: %s", e.Field, e.Message)
}

// FlowIntegrityError signals a catalog/index desync.
type FlowIntegrityError struct {
	Flow   Flow
	Index  int
	Reason string
}

func (e *FlowIntegrityError) Error() string {
	return fmt.Sprintf("flow integrity (%s, index %d): %s", e.Flow, e.Index, e.Reason)
}

// ProviderError is a classified failure of an external model or capture service.
type ProviderError struct {
	Provider  string
	Message   string
	Code      string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GenerationFailure is any unrecovered error of the generation sequence.
type GenerationFailure struct {
	Stage GenerationStage
	Err   error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

type PersistenceError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s (%s): %v", e.Op, e.SessionID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type NotificationError struct {
	SessionID string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification for %s: %v", e.SessionID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a retryable ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindValidation        ErrorKind = "validation"
	ErrorKindFlowIntegrity     ErrorKind = "flow_integrity"
	ErrorKindProviderRetryable ErrorKind = "provider_retryable"
	ErrorKindProvider          ErrorKind = "provider"
	ErrorKindGeneration        ErrorKind = "generation"
	ErrorKindPersistence       ErrorKind = "persistence"
	ErrorKindNotification      ErrorKind = "notification"
)

// KindOf maps an error onto the closed error taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var (
		ve *ValidationError
		fe *FlowIntegrityError
		pe *ProviderError
		pr *PersistenceError
		ne *NotificationError
	)

	switch {
	case errors.As(err, &ve):
		return ErrorKindValidation
	case errors.As(err, &fe):
		return ErrorKindFlowIntegrity
	case errors.As(err, &pe):
		if pe.Retryable {
			return ErrorKindProviderRetryable
		}
		return ErrorKindProvider
	case errors.As(err, &pr):
		return ErrorKindPersistence
	case errors.As(err, &ne):
		return ErrorKindNotification
	default:
		return ErrorKindGeneration
	}
}

// GenerationResult is the outcome of one wrapped external call.
type GenerationResult struct {
	Success   bool      `json:"success"`
	Content   string    `json:"content,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

func NewGenerationResult(content string, err error) GenerationResult {
	if err != nil {
		return GenerationResult{ErrorKind: KindOf(err)}
	}
	return GenerationResult{Success: true, Content: content}
}
