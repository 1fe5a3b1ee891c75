package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/logger"
	"github.com/futig/design-agent/internal/pkg/response"
	"github.com/futig/design-agent/internal/pkg/validator"
)

const (
	clientIDHeader = "X-Client-ID"
	maxBodyBytes   = 64 << 10
)

type Handler struct {
	usecase   ConversationUsecase
	exporter  Exporter
	events    EventSource
	validator *validator.Validator
}

func NewHandler(
	usecase ConversationUsecase,
	exporter Exporter,
	events EventSource,
	validator *validator.Validator,
) *Handler {
	return &Handler{
		usecase:   usecase,
		exporter:  exporter,
		events:    events,
		validator: validator,
	}
}

// StartSession handles POST /chat/sessions - Start new session
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "StartSession")

	// the body is optional when the client id travels in the header
	var req entity.StartSessionRequest
	if err := decode(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if header := strings.TrimSpace(r.Header.Get(clientIDHeader)); req.ClientID == "" && header != "" {
		req.ClientID = header
	}

	if err := h.validator.ValidateClientID(req.ClientID); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "validation failed", err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("client_id", req.ClientID))
	ctxzap.Info(ctx, "starting chat session")

	view, err := h.usecase.StartSession(ctx, req.ClientID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Created(w, view)
}

// GetSession handles GET /chat/sessions/{id} - Get session view
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "GetSession")

	ctxzap.Debug(ctx, "fetching session")

	view, err := h.usecase.GetSession(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, view)
}

// SubmitText handles POST /chat/sessions/{id}/text - Typed message
func (h *Handler) SubmitText(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "SubmitText")

	var req entity.SubmitTextRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	view, err := h.usecase.SubmitFreeText(ctx, sessionID, req.Text)
	h.respondView(ctx, w, view, err)
}

// SubmitChoice handles POST /chat/sessions/{id}/choice - Quick action or option button
func (h *Handler) SubmitChoice(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "SubmitChoice")

	var req entity.SubmitChoiceRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctxzap.Debug(ctx, "choice submitted", zap.String("label", req.Label))

	view, err := h.usecase.SubmitChoice(ctx, sessionID, req.Label)
	h.respondView(ctx, w, view, err)
}

// SubmitReferences handles POST /chat/sessions/{id}/references - References widget
func (h *Handler) SubmitReferences(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "SubmitReferences")

	var req entity.SubmitReferencesRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validator.ValidateReferences(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "validation failed", err)
		return
	}

	view, err := h.usecase.SubmitStructuredEntries(ctx, sessionID, req.Entries, req.None)
	h.respondView(ctx, w, view, err)
}

// SubmitRating handles POST /chat/sessions/{id}/rating
func (h *Handler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "SubmitRating")

	var req entity.SubmitRatingRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validator.ValidateRating(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "validation failed", err)
		return
	}

	view, err := h.usecase.SubmitRating(ctx, sessionID, req.Score)
	h.respondView(ctx, w, view, err)
}

// SubmitFeedback handles POST /chat/sessions/{id}/feedback
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "SubmitFeedback")

	var req entity.SubmitFeedbackRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	view, err := h.usecase.SubmitFeedback(ctx, sessionID, req.Text)
	h.respondView(ctx, w, view, err)
}

// SubmitEmail handles POST /chat/sessions/{id}/email
func (h *Handler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "SubmitEmail")

	var req entity.SubmitEmailRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	view, err := h.usecase.SubmitEmail(ctx, sessionID, req.Email)
	h.respondView(ctx, w, view, err)
}

// NewChat handles POST /chat/sessions/{id}/new - Replace the session with a fresh one
func (h *Handler) NewChat(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "NewChat")

	ctxzap.Info(ctx, "starting new chat")

	view, err := h.usecase.NewChat(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Created(w, view)
}

// GetSummary handles GET /chat/sessions/{id}/summary?format=markdown|docx|pdf
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "GetSummary")

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		formatParam = string(entity.FormatMarkdown)
	}
	format := entity.ResultFormat(formatParam)
	if err := h.validator.ValidateFormat(format); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid format parameter", err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("format", string(format)))

	session, err := h.usecase.Snapshot(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if session.Flow == entity.FlowNone {
		h.handleUsecaseError(ctx, w, fmt.Errorf("%w: no answers collected yet", entity.ErrNoResult))
		return
	}

	summary, err := h.exporter.Export(format, session)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to format summary", err)
		return
	}

	ctxzap.Info(ctx, "session summary exported", zap.Int("size", len(summary.Content)))
	response.Attachment(w, summary)
}

// GetHTML handles GET /chat/sessions/{id}/html - Generated page
func (h *Handler) GetHTML(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID := h.sessionContext(r, "GetHTML")

	session, err := h.usecase.Snapshot(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if session.Generation.HTML == "" {
		h.handleUsecaseError(ctx, w, fmt.Errorf("%w: page has not been generated", entity.ErrNoResult))
		return
	}

	response.HTML(w, session.Generation.HTML)
}

func (h *Handler) sessionContext(r *http.Request, action string) (context.Context, string) {
	sessionID := chi.URLParam(r, "id")
	return logger.WithAction(logger.WithSession(r.Context(), sessionID), action), sessionID
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *Handler) respondView(ctx context.Context, w http.ResponseWriter, view *entity.SessionView, err error) {
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	response.Success(w, view)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *entity.ValidationError

	switch {
	case errors.Is(err, entity.ErrSessionNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "session not found", err)
	case errors.As(err, &validationErr):
		h.respondError(ctx, w, http.StatusBadRequest, validationErr.Message, err)
	case errors.Is(err, entity.ErrInvalidParameter) || errors.Is(err, entity.ErrInvalidFormat) || errors.Is(err, entity.ErrMissingField):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	case errors.Is(err, entity.ErrSessionLimitReached):
		h.respondError(ctx, w, http.StatusTooManyRequests, h.usecase.LimitMessage(), err)
	case errors.Is(err, entity.ErrSessionBusy):
		h.respondError(ctx, w, http.StatusConflict, "generation is in progress", err)
	case errors.Is(err, entity.ErrSessionClosed) || errors.Is(err, entity.ErrWrongInput) || errors.Is(err, entity.ErrNoResult):
		h.respondError(ctx, w, http.StatusConflict, "invalid session state", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
