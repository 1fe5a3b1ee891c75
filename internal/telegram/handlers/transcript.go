package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/telegram/keyboard"
	"github.com/futig/design-agent/internal/telegram/render"
	"github.com/futig/design-agent/internal/telegram/state"
)

const htmlFilename = "page.html"

// Transcript mirrors the session transcript into the chat. Every bot message is delivered once,
// the input keyboard of the current prompt rides on the newest one.
type Transcript struct {
	sender   *MessageSender
	states   *state.Manager
	keyboard *keyboard.Builder
}

func NewTranscript(sender *MessageSender, states *state.Manager, kb *keyboard.Builder) *Transcript {
	return &Transcript{sender: sender, states: states, keyboard: kb}
}

// Sync delivers the bot messages of view the chat has not seen and refreshes the keyboard.
func (t *Transcript) Sync(ctx context.Context, userID int64, view *entity.SessionView) error {
	return t.sync(ctx, userID, view, "")
}

// Notify is Sync that moves the keyboard onto notice when view brought no new messages.
func (t *Transcript) Notify(ctx context.Context, userID int64, view *entity.SessionView, notice string) error {
	return t.sync(ctx, userID, view, notice)
}

// Markup returns the keyboard for the current position of view, nil when none is needed.
func (t *Transcript) Markup(view *entity.SessionView, pendingReferences int) *tgbotapi.InlineKeyboardMarkup {
	var kb tgbotapi.InlineKeyboardMarkup

	switch {
	case view.SessionClosed:
		kb = t.keyboard.ClosedKeyboard(view.Flow != entity.FlowNone)
	case view.IsBusy:
		return nil
	case view.Widget == entity.WidgetReferences:
		kb = t.keyboard.ReferencesKeyboard(pendingReferences)
	case view.Widget == entity.WidgetRating:
		kb = t.keyboard.RatingKeyboard(view.HasHTML)
	case view.Widget == entity.WidgetFeedback, view.Widget == entity.WidgetEmail:
		if !view.HasHTML {
			return nil
		}
		kb = t.keyboard.SummaryKeyboard()
	case len(view.Options) > 0:
		kb = t.keyboard.OptionsKeyboard(PromptID(view), view.Options, view.Selected)
	default:
		return nil
	}
	return &kb
}

func (t *Transcript) sync(ctx context.Context, userID int64, view *entity.SessionView, notice string) error {
	unlock := t.states.Lock(userID)
	defer unlock()

	ts, data, err := t.states.Load(ctx, userID)
	if err != nil {
		return err
	}
	if ts.SessionID != view.SessionID {
		// the user moved on to another session meanwhile
		return nil
	}
	if newestMessageID(view) < data.LastDeliveredID {
		ctxzap.Debug(ctx, "skipping stale session view", zap.String("session_id", view.SessionID))
		return nil
	}

	chatID := data.ChatID
	if chatID == 0 {
		chatID = userID
	}

	if !view.IsBusy && data.StatusMessageID != 0 {
		if err := t.sender.Delete(chatID, data.StatusMessageID); err != nil {
			ctxzap.Warn(ctx, "failed to remove progress message", zap.Error(err))
		}
		data.StatusMessageID = 0
		data.LastProgress = ""
	}

	markup := t.Markup(view, len(data.PendingReferences))
	promptID := PromptID(view)

	deliverErr := t.deliver(ctx, chatID, view, data, markup, promptID, notice)

	if err := t.states.UpdateStateData(ctx, userID, data); err != nil {
		return fmt.Errorf("save delivery state: %w", err)
	}
	return deliverErr
}

func (t *Transcript) deliver(
	ctx context.Context,
	chatID int64,
	view *entity.SessionView,
	data *state.StateData,
	markup *tgbotapi.InlineKeyboardMarkup,
	promptID int64,
	notice string,
) error {
	var pending []entity.Message
	for _, m := range view.Messages {
		if m.ID > data.LastDeliveredID && m.Sender == entity.SenderBot {
			pending = append(pending, m)
		}
	}

	if len(pending) == 0 {
		data.LastDeliveredID = max(data.LastDeliveredID, newestMessageID(view))

		if notice != "" {
			var mk interface{}
			if markup != nil {
				mk = *markup
			}
			sent, err := t.sender.sendCriticalMessage(chatID, notice, mk)
			if err != nil {
				return err
			}
			if markup != nil {
				t.moveKeyboard(ctx, chatID, data, sent.MessageID, promptID)
			}
			return nil
		}

		t.refreshKeyboard(ctx, chatID, data, markup, promptID)
		return nil
	}

	for i, m := range pending {
		var mk interface{}
		last := i == len(pending)-1
		if last && markup != nil {
			mk = *markup
		}

		sent, err := t.sender.sendCriticalMessage(chatID, render.Message(m), mk)
		if err != nil {
			return fmt.Errorf("deliver message %d: %w", m.ID, err)
		}
		data.LastDeliveredID = m.ID

		if m.HTMLContent != "" {
			if err := t.sender.SendDocument(chatID, htmlFilename, []byte(m.HTMLContent), ""); err != nil {
				ctxzap.Error(ctx, "failed to send generated page", zap.Error(err))
			}
		}

		if last {
			if mk != nil {
				t.moveKeyboard(ctx, chatID, data, sent.MessageID, promptID)
			} else {
				t.clearKeyboard(ctx, chatID, data)
			}
		}
	}

	data.LastDeliveredID = max(data.LastDeliveredID, newestMessageID(view))
	return nil
}

// refreshKeyboard redraws the keyboard of the current prompt in place, e.g. after a multi-select toggle.
func (t *Transcript) refreshKeyboard(ctx context.Context, chatID int64, data *state.StateData, markup *tgbotapi.InlineKeyboardMarkup, promptID int64) {
	if data.KeyboardMessageID == 0 {
		return
	}
	if markup == nil || data.KeyboardPromptID != promptID {
		t.clearKeyboard(ctx, chatID, data)
		return
	}
	if err := t.sender.EditMarkup(chatID, data.KeyboardMessageID, *markup); err != nil {
		// Telegram rejects edits that change nothing
		ctxzap.Debug(ctx, "keyboard not refreshed", zap.Error(err))
	}
}

func (t *Transcript) moveKeyboard(ctx context.Context, chatID int64, data *state.StateData, messageID int, promptID int64) {
	if data.KeyboardMessageID != 0 && data.KeyboardMessageID != messageID {
		t.clearKeyboard(ctx, chatID, data)
	}
	data.KeyboardMessageID = messageID
	data.KeyboardPromptID = promptID
}

func (t *Transcript) clearKeyboard(ctx context.Context, chatID int64, data *state.StateData) {
	if data.KeyboardMessageID == 0 {
		return
	}
	if err := t.sender.EditMarkup(chatID, data.KeyboardMessageID, t.keyboard.Empty()); err != nil {
		ctxzap.Debug(ctx, "old keyboard not removed", zap.Error(err))
	}
	data.KeyboardMessageID = 0
	data.KeyboardPromptID = 0
}

// PromptID is the newest bot message of view. Option buttons are bound to it.
func PromptID(view *entity.SessionView) int64 {
	for i := len(view.Messages) - 1; i >= 0; i-- {
		if view.Messages[i].Sender == entity.SenderBot {
			return view.Messages[i].ID
		}
	}
	return 0
}

func newestMessageID(view *entity.SessionView) int64 {
	if len(view.Messages) == 0 {
		return 0
	}
	return view.Messages[len(view.Messages)-1].ID
}
