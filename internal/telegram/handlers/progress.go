package handlers

import (
	"context"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/telegram/render"
	"github.com/futig/design-agent/internal/telegram/state"
)

// ProgressRelay follows the live events of bound sessions. It keeps one status message per chat
// up to date while a generation runs and delivers the messages the generation appends.
type ProgressRelay struct {
	events     EventSource
	states     *state.Manager
	uc         ConversationUsecase
	transcript *Transcript
	sender     *MessageSender
	logger     *zap.Logger

	mu       sync.Mutex
	root     context.Context
	watching map[string]context.CancelFunc
	wg       sync.WaitGroup
}

func NewProgressRelay(
	events EventSource,
	states *state.Manager,
	uc ConversationUsecase,
	transcript *Transcript,
	sender *MessageSender,
	logger *zap.Logger,
) *ProgressRelay {
	return &ProgressRelay{
		events:     events,
		states:     states,
		uc:         uc,
		transcript: transcript,
		sender:     sender,
		logger:     logger,
		watching:   make(map[string]context.CancelFunc),
	}
}

// Start sets the context every subscription derives from
func (r *ProgressRelay) Start(ctx context.Context) {
	r.mu.Lock()
	r.root = ctx
	r.mu.Unlock()
}

// Watch subscribes to sessionID unless already subscribed
func (r *ProgressRelay) Watch(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.watching[sessionID]; ok {
		return nil
	}
	if r.root == nil {
		r.root = context.Background()
	}

	ctx, cancel := context.WithCancel(r.root)
	events, err := r.events.Subscribe(ctx, sessionID)
	if err != nil {
		cancel()
		return err
	}
	r.watching[sessionID] = cancel

	r.wg.Add(1)
	go r.run(ctx, sessionID, events)
	return nil
}

// Unwatch drops the subscription of sessionID
func (r *ProgressRelay) Unwatch(sessionID string) {
	r.mu.Lock()
	cancel, ok := r.watching[sessionID]
	delete(r.watching, sessionID)
	r.mu.Unlock()

	if ok {
		cancel()
	}
}

// Watching reports whether sessionID is followed
func (r *ProgressRelay) Watching(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.watching[sessionID]
	return ok
}

// Stop cancels every subscription and waits for the relays to exit
func (r *ProgressRelay) Stop() {
	r.mu.Lock()
	for id, cancel := range r.watching {
		cancel()
		delete(r.watching, id)
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *ProgressRelay) run(ctx context.Context, sessionID string, events <-chan entity.SessionEvent) {
	defer r.wg.Done()

	log := r.logger.With(zap.String("session_id", sessionID))
	ctx = ctxzap.ToContext(ctx, log)

	var typing *TypingNotifier
	stopTyping := func() {
		if typing != nil {
			typing.Stop()
			typing = nil
		}
	}
	defer stopTyping()

	busy := false
	for ev := range events {
		userID, chatID, ok := r.owner(ctx, sessionID)
		if !ok {
			log.Debug("session no longer bound to a chat, dropping relay")
			r.Unwatch(sessionID)
			return
		}

		switch ev.Type {
		case entity.EventProgress:
			if typing == nil {
				typing = NewTypingNotifier(r.sender, chatID, log)
				typing.Start(ctx)
			}
			if ev.Progress != nil {
				r.showProgress(ctx, userID, chatID, sessionID, *ev.Progress)
			}
		case entity.EventMessage:
			// messages of user actions are delivered by the handler that caused them
			if ev.Busy {
				r.sync(ctx, userID, sessionID)
			}
		case entity.EventState:
			if busy && !ev.Busy {
				stopTyping()
				r.sync(ctx, userID, sessionID)
			}
		}
		busy = ev.Busy
	}
}

func (r *ProgressRelay) owner(ctx context.Context, sessionID string) (int64, int64, bool) {
	ts, err := r.states.GetBySessionID(ctx, sessionID)
	if err != nil || ts.SessionID != sessionID {
		return 0, 0, false
	}

	chatID := ts.UserID
	if data, err := state.DecodeStateData(ts.StateData); err == nil && data.ChatID != 0 {
		chatID = data.ChatID
	}
	return ts.UserID, chatID, true
}

func (r *ProgressRelay) showProgress(ctx context.Context, userID, chatID int64, sessionID string, p entity.Progress) {
	unlock := r.states.Lock(userID)
	defer unlock()

	ts, data, err := r.states.Load(ctx, userID)
	if err != nil || ts.SessionID != sessionID {
		return
	}

	text := render.Progress(p)
	if text == data.LastProgress {
		return
	}

	if data.StatusMessageID == 0 {
		sent, err := r.sender.SendMessage(chatID, text, nil)
		if err != nil {
			return
		}
		data.StatusMessageID = sent.MessageID
	} else if err := r.sender.EditText(chatID, data.StatusMessageID, text); err != nil {
		ctxzap.Debug(ctx, "progress message not updated", zap.Error(err))
	}
	data.LastProgress = text

	if err := r.states.UpdateStateData(ctx, userID, data); err != nil {
		ctxzap.Warn(ctx, "failed to save progress state", zap.Error(err))
	}
}

func (r *ProgressRelay) sync(ctx context.Context, userID int64, sessionID string) {
	view, err := r.uc.GetSession(ctx, sessionID)
	if err != nil {
		ctxzap.Warn(ctx, "failed to load session for delivery", zap.Error(err))
		return
	}
	if err := r.transcript.Sync(ctx, userID, view); err != nil {
		ctxzap.Error(ctx, "failed to deliver session messages", zap.Error(err))
	}
}
