package handlers

import (
	"context"
	"errors"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/telegram/render"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
	SeverityCritical
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// HandlerError represents a structured error with user message and logging info
type HandlerError struct {
	Err         error
	UserMessage string
	LogMessage  string
	Severity    ErrorSeverity
}

// classifyHandlerError analyzes an error and returns a HandlerError with appropriate severity and messages
func classifyHandlerError(err error, limitMessage string) *HandlerError {
	if err == nil {
		return &HandlerError{
			UserMessage: render.ErrGeneric,
			LogMessage:  "unknown error",
			Severity:    SeverityWarning,
		}
	}

	var validation *entity.ValidationError
	if errors.As(err, &validation) {
		return &HandlerError{Err: err, UserMessage: validation.Message, LogMessage: "input rejected", Severity: SeverityWarning}
	}

	// Check for domain errors (non-critical)
	switch {
	case errors.Is(err, entity.ErrSessionNotFound):
		return &HandlerError{Err: err, UserMessage: render.MsgNoSession, LogMessage: "session not found", Severity: SeverityWarning}
	case errors.Is(err, entity.ErrSessionClosed):
		return &HandlerError{Err: err, UserMessage: render.MsgSessionClosed, LogMessage: "session closed", Severity: SeverityWarning}
	case errors.Is(err, entity.ErrSessionBusy):
		return &HandlerError{Err: err, UserMessage: render.MsgBusy, LogMessage: "session busy", Severity: SeverityWarning}
	case errors.Is(err, entity.ErrSessionLimitReached):
		return &HandlerError{Err: err, UserMessage: limitMessage, LogMessage: "session limit reached", Severity: SeverityWarning}
	case errors.Is(err, entity.ErrWrongInput):
		return &HandlerError{Err: err, UserMessage: render.MsgUseButtons, LogMessage: "unexpected input", Severity: SeverityWarning}
	case errors.Is(err, entity.ErrNoResult):
		return &HandlerError{Err: err, UserMessage: render.MsgNoSummary, LogMessage: "no result", Severity: SeverityWarning}
	case errors.Is(err, entity.ErrInvalidParameter), errors.Is(err, entity.ErrInvalidFormat), errors.Is(err, entity.ErrMissingField):
		return &HandlerError{Err: err, UserMessage: render.MsgUseButtons, LogMessage: "invalid input", Severity: SeverityWarning}
	}

	// Check for timeout errors
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &HandlerError{Err: err, UserMessage: render.ErrTimeout, LogMessage: "operation timed out", Severity: SeverityError}
	}

	// Check for network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &HandlerError{Err: err, UserMessage: render.ErrTimeout, LogMessage: "network timeout", Severity: SeverityError}
		}
		return &HandlerError{Err: err, UserMessage: render.ErrNetworkIssue, LogMessage: "network error", Severity: SeverityError}
	}

	return &HandlerError{Err: err, UserMessage: render.ErrGeneric, LogMessage: "handler error", Severity: SeverityCritical}
}

// HandleError provides centralized error handling for all handlers
// It logs the error with appropriate severity and sends a user-friendly message
func (h *BaseHandler) HandleError(ctx context.Context, chatID int64, err error) {
	if err == nil {
		return
	}

	handlerErr := classifyHandlerError(err, h.deps.Conversation.LimitMessage())

	switch handlerErr.Severity {
	case SeverityCritical, SeverityError:
		ctxzap.Error(ctx, handlerErr.LogMessage,
			zap.Error(handlerErr.Err),
			zap.Int64("chat_id", chatID),
			zap.String("severity", handlerErr.Severity.String()),
		)
	case SeverityWarning:
		ctxzap.Warn(ctx, handlerErr.LogMessage,
			zap.Error(handlerErr.Err),
			zap.Int64("chat_id", chatID),
		)
	}

	// Send user-friendly message
	_ = h.deps.Sender.Send(chatID, handlerErr.UserMessage, nil)
}
