package handlers

import (
	"context"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/validator"
	"github.com/futig/design-agent/internal/telegram/render"
)

// ReferencesHandler collects reference websites line by line until they are submitted
type ReferencesHandler struct {
	BaseHandler
}

func NewReferencesHandler(deps *Deps) *ReferencesHandler {
	return &ReferencesHandler{BaseHandler{stateName: HandlerStateReferences, deps: deps}}
}

func (h *ReferencesHandler) Handle(ctx context.Context, msg *Message) error {
	entries, rejected := render.ParseReferences(msg.Text)
	if len(rejected) > 0 {
		h.sendMessage(msg.ChatID, render.MsgReferencesRejected(rejected), nil)
	}
	if len(entries) == 0 {
		return nil
	}

	count, err := h.collect(ctx, msg.UserID, entries)
	if err != nil {
		return err
	}

	return h.deps.Transcript.Notify(ctx, msg.UserID, msg.View,
		render.MsgReferencesAdded(count, validator.MaxReferenceEntries))
}

// collect appends entries to the pending list, keeping at most MaxReferenceEntries
func (h *ReferencesHandler) collect(ctx context.Context, userID int64, entries []entity.ReferenceEntry) (int, error) {
	unlock := h.deps.States.Lock(userID)
	defer unlock()

	data, err := h.deps.States.GetStateData(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, e := range entries {
		if len(data.PendingReferences) >= validator.MaxReferenceEntries {
			break
		}
		data.PendingReferences = append(data.PendingReferences, e)
	}

	if err := h.deps.States.UpdateStateData(ctx, userID, data); err != nil {
		return 0, err
	}
	return len(data.PendingReferences), nil
}
