package keyboard

import (
	"fmt"
	"slices"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	selectedMark = "✓ "
	maxRating    = 5
)

// Builder creates inline keyboards
type Builder struct{}

// NewBuilder creates a keyboard builder
func NewBuilder() *Builder {
	return &Builder{}
}

// OptionsKeyboard lists the choices of the prompt, one per row. Selected labels of a multi-select get a check mark.
func (b *Builder) OptionsKeyboard(promptID int64, options, selected []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for i, option := range options {
		label := option
		if slices.Contains(selected, option) {
			label = selectedMark + option
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, EncodeOption(promptID, i)),
		))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// RatingKeyboard creates the 1..5 score row. withSummary adds the design brief button.
func (b *Builder) RatingKeyboard(withSummary bool) tgbotapi.InlineKeyboardMarkup {
	scores := make([]tgbotapi.InlineKeyboardButton, 0, maxRating)
	for i := 1; i <= maxRating; i++ {
		scores = append(scores, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d ⭐", i),
			EncodeCallback(ActionRate, strconv.Itoa(i)),
		))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{scores}
	if withSummary {
		rows = append(rows, summaryRow())
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// ReferencesKeyboard offers submitting the collected references or skipping them.
func (b *Builder) ReferencesKeyboard(collected int) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if collected > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ Submit references (%d)", collected),
				EncodeCallback(ActionRefs, RefsSubmit),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🚫 I don't have any", EncodeCallback(ActionRefs, RefsNone)),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// SummaryKeyboard offers the design brief export.
func (b *Builder) SummaryKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(summaryRow())
}

// ClosedKeyboard is attached to the closing message.
func (b *Builder) ClosedKeyboard(withSummary bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if withSummary {
		rows = append(rows, summaryRow())
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔁 New chat", EncodeCallback(ActionChat, ChatNew)),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// CancelConfirmKeyboard asks to confirm /cancel
func (b *Builder) CancelConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, close it", EncodeCallback(ActionConfirm, ConfirmCancel)),
			tgbotapi.NewInlineKeyboardButtonData("❌ No, continue", EncodeCallback(ActionConfirm, ConfirmContinue)),
		),
	)
}

// Empty removes the keyboard of an earlier message.
func (b *Builder) Empty() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

func summaryRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📄 Design brief (PDF)", EncodeCallback(ActionSummary, "pdf")),
	)
}
