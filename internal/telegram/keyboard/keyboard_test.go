package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	cb, err := ParseCallback("refs:submit")
	require.NoError(t, err)
	assert.Equal(t, ActionRefs, cb.Action)
	assert.Equal(t, RefsSubmit, cb.Value)

	cb, err = ParseCallback("opt:12.3")
	require.NoError(t, err)
	assert.Equal(t, "12.3", cb.Value)

	_, err = ParseCallback("garbage")
	assert.Error(t, err)
	_, err = ParseCallback(":x")
	assert.Error(t, err)
}

func TestOptionRoundTrip(t *testing.T) {
	cb, err := ParseCallback(EncodeOption(42, 7))
	require.NoError(t, err)
	require.Equal(t, ActionOption, cb.Action)

	prompt, index, err := ParseOption(cb.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), prompt)
	assert.Equal(t, 7, index)

	for _, bad := range []string{"42", "x.1", "1.y", "1.-1"} {
		_, _, err := ParseOption(bad)
		assert.Error(t, err, bad)
	}
}

func TestOptionsKeyboard_MarksSelected(t *testing.T) {
	kb := NewBuilder().OptionsKeyboard(5, []string{"Slow", "Ugly", "Other", "Done selecting issues"}, []string{"Ugly", "Other"})

	require.Len(t, kb.InlineKeyboard, 4)
	labels := make([]string, 0, 4)
	for _, row := range kb.InlineKeyboard {
		require.Len(t, row, 1)
		labels = append(labels, row[0].Text)
	}
	assert.Equal(t, []string{"Slow", "✓ Ugly", "✓ Other", "Done selecting issues"}, labels)
	assert.Equal(t, "opt:5.1", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestRatingKeyboard(t *testing.T) {
	kb := NewBuilder().RatingKeyboard(true)
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 5)
	assert.Equal(t, "rate:1", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "rate:5", *kb.InlineKeyboard[0][4].CallbackData)
	assert.Equal(t, "sum:pdf", *kb.InlineKeyboard[1][0].CallbackData)

	assert.Len(t, NewBuilder().RatingKeyboard(false).InlineKeyboard, 1)
}

func TestReferencesKeyboard(t *testing.T) {
	kb := NewBuilder().ReferencesKeyboard(0)
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "refs:none", *kb.InlineKeyboard[0][0].CallbackData)

	kb = NewBuilder().ReferencesKeyboard(2)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "✅ Submit references (2)", kb.InlineKeyboard[0][0].Text)
}
