package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/telegram/render"
)

// TextHandler routes typed messages to the controller by the input the session waits for
type TextHandler struct {
	BaseHandler
}

func NewTextHandler(deps *Deps) *TextHandler {
	return &TextHandler{BaseHandler{stateName: HandlerStateText, deps: deps}}
}

func (h *TextHandler) Handle(ctx context.Context, msg *Message) error {
	view := msg.View
	uc := h.deps.Conversation

	switch {
	case view.SessionClosed:
		h.sendMessage(msg.ChatID, render.MsgSessionClosed, h.deps.Keyboard.ClosedKeyboard(view.Flow != entity.FlowNone))
		return nil
	case view.IsBusy:
		h.sendMessage(msg.ChatID, render.MsgBusy, nil)
		return nil
	}

	text := strings.TrimSpace(msg.Text)

	switch view.Widget {
	case entity.WidgetRating:
		score, err := strconv.Atoi(text)
		if err != nil || score < 1 || score > 5 {
			return h.deps.Transcript.Notify(ctx, msg.UserID, view, render.MsgRatingHint)
		}
		next, err := uc.SubmitRating(ctx, msg.SessionID, score)
		return h.sync(ctx, msg, next, err)
	case entity.WidgetFeedback:
		next, err := uc.SubmitFeedback(ctx, msg.SessionID, text)
		return h.sync(ctx, msg, next, err)
	case entity.WidgetEmail:
		next, err := uc.SubmitEmail(ctx, msg.SessionID, text)
		return h.sync(ctx, msg, next, err)
	default:
		next, err := uc.SubmitFreeText(ctx, msg.SessionID, msg.Text)
		return h.sync(ctx, msg, next, err)
	}
}
