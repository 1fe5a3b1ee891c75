package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/telegram/keyboard"
	"github.com/futig/design-agent/internal/telegram/render"
	"github.com/futig/design-agent/internal/telegram/state"
)

// CallbackHandler handles all inline button clicks
type CallbackHandler struct {
	BaseHandler
}

func NewCallbackHandler(deps *Deps) *CallbackHandler {
	return &CallbackHandler{BaseHandler{stateName: HandlerStateCallback, deps: deps}}
}

func (h *CallbackHandler) Handle(ctx context.Context, msg *Message) error {
	cb, err := keyboard.ParseCallback(msg.CallbackData)
	if err != nil {
		h.deps.Sender.AnswerCallback(msg.CallbackID, "❌ Invalid button")
		return nil
	}

	ctxzap.Debug(ctx, "handling callback",
		zap.String("action", cb.Action),
		zap.String("value", cb.Value),
	)

	// actions that do not need a bound session
	switch cb.Action {
	case keyboard.ActionConfirm:
		h.deps.Sender.AnswerCallback(msg.CallbackID, "")
		_ = h.deps.Sender.EditMarkup(msg.ChatID, msg.MessageID, h.deps.Keyboard.Empty())
		if cb.Value == keyboard.ConfirmCancel {
			return h.closeSession(ctx, msg.UserID, msg.ChatID)
		}
		h.sendMessage(msg.ChatID, render.MsgContinue, nil)
		return nil
	case keyboard.ActionChat:
		h.deps.Sender.AnswerCallback(msg.CallbackID, "")
		return h.handleNewChat(ctx, msg)
	}

	sessionID, err := h.session(ctx, msg.UserID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return err
	}
	if sessionID == "" {
		h.deps.Sender.AnswerCallback(msg.CallbackID, "")
		h.sendMessage(msg.ChatID, render.MsgNoSession, nil)
		return nil
	}
	msg.SessionID = sessionID

	switch cb.Action {
	case keyboard.ActionOption:
		return h.handleOption(ctx, msg, cb.Value)
	case keyboard.ActionRate:
		return h.handleRating(ctx, msg, cb.Value)
	case keyboard.ActionRefs:
		return h.handleReferences(ctx, msg, cb.Value)
	case keyboard.ActionSummary:
		return h.handleSummary(ctx, msg)
	default:
		h.deps.Sender.AnswerCallback(msg.CallbackID, "❌ Unknown button")
		return nil
	}
}

// handleOption submits the label behind an option button if it still belongs to the current prompt
func (h *CallbackHandler) handleOption(ctx context.Context, msg *Message, value string) error {
	promptID, index, err := keyboard.ParseOption(value)
	if err != nil {
		h.deps.Sender.AnswerCallback(msg.CallbackID, "❌ Invalid button")
		return nil
	}

	view, err := h.deps.Conversation.GetSession(ctx, msg.SessionID)
	if err != nil {
		h.deps.Sender.AnswerCallback(msg.CallbackID, "")
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	if PromptID(view) != promptID || index >= len(view.Options) {
		h.deps.Sender.AnswerCallback(msg.CallbackID, render.MsgStaleButton)
		return nil
	}
	h.deps.Sender.AnswerCallback(msg.CallbackID, "")

	next, err := h.deps.Conversation.SubmitChoice(ctx, msg.SessionID, view.Options[index])
	return h.sync(ctx, msg, next, err)
}

func (h *CallbackHandler) handleRating(ctx context.Context, msg *Message, value string) error {
	score, err := strconv.Atoi(value)
	if err != nil {
		h.deps.Sender.AnswerCallback(msg.CallbackID, "❌ Invalid button")
		return nil
	}
	h.deps.Sender.AnswerCallback(msg.CallbackID, "")

	next, err := h.deps.Conversation.SubmitRating(ctx, msg.SessionID, score)
	return h.sync(ctx, msg, next, err)
}

func (h *CallbackHandler) handleReferences(ctx context.Context, msg *Message, value string) error {
	if value == keyboard.RefsNone {
		h.deps.Sender.AnswerCallback(msg.CallbackID, "")
		if err := h.takeReferences(ctx, msg.UserID, nil); err != nil {
			return err
		}
		next, err := h.deps.Conversation.SubmitStructuredEntries(ctx, msg.SessionID, nil, true)
		return h.sync(ctx, msg, next, err)
	}

	var entries []entity.ReferenceEntry
	if err := h.takeReferences(ctx, msg.UserID, &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		h.deps.Sender.AnswerCallback(msg.CallbackID, render.MsgReferencesEmpty)
		return nil
	}
	h.deps.Sender.AnswerCallback(msg.CallbackID, "")

	next, err := h.deps.Conversation.SubmitStructuredEntries(ctx, msg.SessionID, entries, false)
	return h.sync(ctx, msg, next, err)
}

// takeReferences clears the pending references, copying them to dst when set
func (h *CallbackHandler) takeReferences(ctx context.Context, userID int64, dst *[]entity.ReferenceEntry) error {
	unlock := h.deps.States.Lock(userID)
	defer unlock()

	data, err := h.deps.States.GetStateData(ctx, userID)
	if err != nil {
		return err
	}
	if dst != nil {
		*dst = data.PendingReferences
	}
	if len(data.PendingReferences) == 0 {
		return nil
	}

	data.PendingReferences = nil
	return h.deps.States.UpdateStateData(ctx, userID, data)
}

// handleSummary sends the design brief as a PDF document
func (h *CallbackHandler) handleSummary(ctx context.Context, msg *Message) error {
	h.deps.Sender.AnswerCallback(msg.CallbackID, render.MsgProcessing)

	snapshot, err := h.deps.Conversation.Snapshot(ctx, msg.SessionID)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}
	if snapshot.Flow == entity.FlowNone {
		h.sendMessage(msg.ChatID, render.MsgNoSummary, nil)
		return nil
	}

	summary, err := h.deps.Exporter.Export(entity.FormatPDF, snapshot)
	if err != nil {
		return err
	}

	return h.deps.Sender.SendDocument(msg.ChatID, summary.Filename, summary.Content, "📄 Design brief")
}

func (h *CallbackHandler) handleNewChat(ctx context.Context, msg *Message) error {
	previous, err := h.session(ctx, msg.UserID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return err
	}

	if err := h.startSession(ctx, msg.UserID, msg.ChatID, previous); err != nil {
		h.HandleError(ctx, msg.ChatID, err)
	}
	return nil
}
