package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/telegram/keyboard"
	"github.com/futig/design-agent/internal/telegram/state"
)

type fakeBot struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.sent = append(b.sent, c)
	return tgbotapi.Message{MessageID: 100 + b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) messages() []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range b.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (b *fakeBot) documents() []tgbotapi.DocumentConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range b.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (b *fakeBot) markupEdits() []tgbotapi.EditMessageReplyMarkupConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.EditMessageReplyMarkupConfig
	for _, c := range b.requests {
		if e, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

type memStorage struct {
	mu       sync.Mutex
	sessions map[int64]state.TelegramSession
}

func (s *memStorage) Get(_ context.Context, userID int64) (*state.TelegramSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.sessions[userID]
	if !ok {
		return nil, state.ErrNotFound
	}
	return &ts, nil
}

func (s *memStorage) Set(_ context.Context, session *state.TelegramSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = *session
	return nil
}

func (s *memStorage) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *memStorage) GetBySessionID(_ context.Context, sessionID string) (*state.TelegramSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ts := range s.sessions {
		if ts.SessionID == sessionID {
			return &ts, nil
		}
	}
	return nil, state.ErrNotFound
}

type transcriptFixture struct {
	bot        *fakeBot
	states     *state.Manager
	transcript *Transcript
}

func newTranscriptFixture(t *testing.T) *transcriptFixture {
	t.Helper()
	bot := &fakeBot{}
	states := state.NewManager(&memStorage{sessions: make(map[int64]state.TelegramSession)})
	sender := NewMessageSender(bot, zap.NewNop())
	require.NoError(t, states.BindSession(context.Background(), 1, 10, "s1"))
	return &transcriptFixture{
		bot:        bot,
		states:     states,
		transcript: NewTranscript(sender, states, keyboard.NewBuilder()),
	}
}

func botMsg(id int64, text string) entity.Message {
	return entity.Message{ID: id, Text: text, Sender: entity.SenderBot, CreatedAt: time.Now()}
}

func userMsg(id int64, text string) entity.Message {
	return entity.Message{ID: id, Text: text, Sender: entity.SenderUser, CreatedAt: time.Now()}
}

func TestTranscript_DeliversEachBotMessageOnce(t *testing.T) {
	ctx := context.Background()
	f := newTranscriptFixture(t)

	welcome := &entity.SessionView{
		SessionID: "s1",
		Messages:  []entity.Message{botMsg(1, "Welcome! What would you like to do?")},
		Options:   []string{"New webpage", "Redesign"},
		Widget:    entity.WidgetChoice,
	}
	require.NoError(t, f.transcript.Sync(ctx, 1, welcome))

	msgs := f.bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(10), msgs[0].ChatID)
	markup, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, keyboard.EncodeOption(1, 1), *markup.InlineKeyboard[1][0].CallbackData)

	data, err := f.states.GetStateData(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.LastDeliveredID)
	assert.Equal(t, 101, data.KeyboardMessageID)
	assert.Equal(t, int64(1), data.KeyboardPromptID)

	next := &entity.SessionView{
		SessionID: "s1",
		Messages: []entity.Message{
			botMsg(1, "Welcome! What would you like to do?"),
			userMsg(2, "New webpage"),
			botMsg(3, "Tell me about your business."),
		},
		Widget: entity.WidgetText,
	}
	require.NoError(t, f.transcript.Sync(ctx, 1, next))
	require.NoError(t, f.transcript.Sync(ctx, 1, next))

	msgs = f.bot.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Tell me about your business.", msgs[1].Text)
	assert.Nil(t, msgs[1].ReplyMarkup)

	// the options keyboard of the answered question is removed
	edits := f.bot.markupEdits()
	require.Len(t, edits, 1)
	assert.Equal(t, 101, edits[0].MessageID)

	data, err = f.states.GetStateData(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), data.LastDeliveredID)
	assert.Zero(t, data.KeyboardMessageID)

	// an older view never rewinds the chat
	require.NoError(t, f.transcript.Sync(ctx, 1, welcome))
	assert.Len(t, f.bot.messages(), 2)
}

func TestTranscript_IgnoresOtherSessions(t *testing.T) {
	f := newTranscriptFixture(t)

	view := &entity.SessionView{SessionID: "s0", Messages: []entity.Message{botMsg(1, "old")}}
	require.NoError(t, f.transcript.Sync(context.Background(), 1, view))
	assert.Empty(t, f.bot.messages())
}

func TestTranscript_SendsGeneratedPage(t *testing.T) {
	f := newTranscriptFixture(t)

	result := botMsg(1, "Your page is ready.")
	result.HTMLContent = "<html><body>Bakery</body></html>"
	view := &entity.SessionView{
		SessionID: "s1",
		Messages:  []entity.Message{result},
		Widget:    entity.WidgetRating,
		HasHTML:   true,
	}
	require.NoError(t, f.transcript.Sync(context.Background(), 1, view))

	docs := f.bot.documents()
	require.Len(t, docs, 1)
	file, ok := docs[0].File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, htmlFilename, file.Name)
	assert.Equal(t, []byte(result.HTMLContent), file.Bytes)

	msgs := f.bot.messages()
	require.Len(t, msgs, 1)
	markup, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	// score row plus the design brief button
	assert.Len(t, markup.InlineKeyboard, 2)
}

func TestTranscript_NotifyCarriesKeyboard(t *testing.T) {
	ctx := context.Background()
	f := newTranscriptFixture(t)

	view := &entity.SessionView{
		SessionID: "s1",
		Messages:  []entity.Message{botMsg(1, "Any reference websites?")},
		Widget:    entity.WidgetReferences,
	}
	require.NoError(t, f.transcript.Sync(ctx, 1, view))
	require.NoError(t, f.transcript.Notify(ctx, 1, view, "✅ 1 of 3 references collected."))

	msgs := f.bot.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "✅ 1 of 3 references collected.", msgs[1].Text)
	assert.NotNil(t, msgs[1].ReplyMarkup)

	data, err := f.states.GetStateData(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 102, data.KeyboardMessageID)
}

func TestTranscript_Markup(t *testing.T) {
	tr := NewTranscript(nil, nil, keyboard.NewBuilder())

	assert.Nil(t, tr.Markup(&entity.SessionView{IsBusy: true, Options: []string{"a"}}, 0))
	assert.Nil(t, tr.Markup(&entity.SessionView{Widget: entity.WidgetText}, 0))
	assert.Nil(t, tr.Markup(&entity.SessionView{Widget: entity.WidgetEmail}, 0))

	closed := tr.Markup(&entity.SessionView{SessionClosed: true, Flow: entity.FlowRedesign}, 0)
	require.NotNil(t, closed)
	assert.Len(t, closed.InlineKeyboard, 2)

	refs := tr.Markup(&entity.SessionView{Widget: entity.WidgetReferences}, 2)
	require.NotNil(t, refs)
	assert.Len(t, refs.InlineKeyboard, 2)

	email := tr.Markup(&entity.SessionView{Widget: entity.WidgetEmail, HasHTML: true}, 0)
	require.NotNil(t, email)
	assert.Len(t, email.InlineKeyboard, 1)
}

func TestPromptID(t *testing.T) {
	view := &entity.SessionView{Messages: []entity.Message{botMsg(4, "q"), userMsg(5, "a")}}
	assert.Equal(t, int64(4), PromptID(view))
	assert.Zero(t, PromptID(&entity.SessionView{}))
}
