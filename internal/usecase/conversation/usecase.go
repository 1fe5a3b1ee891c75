package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/logger"
)

type Config struct {
	SessionLimit int           `env:"LIMIT" envDefault:"2"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"24h"`
}

// ConversationUsecase drives the questionnaire of every session and hands completed
// answer sets to the generator.
type ConversationUsecase struct {
	catalog   *Catalog
	processor *Processor
	generator Generator
	store     SessionStore
	counter   SessionCounter
	notifier  Notifier
	publisher Publisher
	cfg       Config
	logger    *zap.Logger

	live  *cache.Cache
	locks sync.Map
	tasks sync.WaitGroup
	now   func() time.Time
}

func NewUsecase(
	catalog *Catalog,
	generator Generator,
	store SessionStore,
	counter SessionCounter,
	notifier Notifier,
	publisher Publisher,
	cfg Config,
	logger *zap.Logger,
) *ConversationUsecase {
	if cfg.SessionLimit <= 0 {
		cfg.SessionLimit = 2
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &ConversationUsecase{
		catalog:   catalog,
		processor: NewProcessor(),
		generator: generator,
		store:     store,
		counter:   counter,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		live:      cache.New(cfg.CacheTTL, cfg.CacheTTL/2),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Catalog exposes the questionnaire for presentation layers.
func (uc *ConversationUsecase) Catalog() *Catalog {
	return uc.catalog
}

// LimitMessage is the terminal text shown once a client used up its sessions.
func (uc *ConversationUsecase) LimitMessage() string {
	return fmt.Sprintf(msgSessionLimit, uc.cfg.SessionLimit)
}

// Wait blocks until every detached task (generation, persistence, notification) finished.
func (uc *ConversationUsecase) Wait() {
	uc.tasks.Wait()
}

// StartSession creates a session for the client unless its cap is reached.
func (uc *ConversationUsecase) StartSession(ctx context.Context, clientID string) (*entity.SessionView, error) {
	count := uc.completedSessions(ctx, clientID)
	if count >= uc.cfg.SessionLimit {
		return nil, entity.ErrSessionLimitReached
	}

	now := uc.now()
	s := entity.NewSessionState(newSessionID(now), clientID, now)
	ctx = logger.WithSession(ctx, s.ID)

	unlock := uc.lock(s.ID)
	defer unlock()

	s.AppendBot(msgWelcome)
	s.AppendBot(msgWelcomeAsk)
	uc.commit(ctx, s, 0)

	ctxzap.Info(ctx, "session started", zap.String("client_id", clientID))

	return uc.view(s, count), nil
}

// NewChat discards the session and starts a fresh one for the same client.
func (uc *ConversationUsecase) NewChat(ctx context.Context, sessionID string) (*entity.SessionView, error) {
	unlock := uc.lock(sessionID)
	s, err := uc.load(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	if s.Busy {
		unlock()
		return nil, entity.ErrSessionBusy
	}
	clientID := s.ClientID

	if count := uc.completedSessions(ctx, clientID); count >= uc.cfg.SessionLimit {
		unlock()
		return nil, entity.ErrSessionLimitReached
	}

	uc.live.Delete(sessionID)
	if err := uc.store.Delete(ctx, sessionID); err != nil {
		ctxzap.Warn(ctx, "failed to delete replaced session",
			zap.Error(&entity.PersistenceError{Op: "delete", SessionID: sessionID, Err: err}))
	}
	unlock()
	uc.locks.Delete(sessionID)

	return uc.StartSession(ctx, clientID)
}

// GetSession returns the current read model of a session.
func (uc *ConversationUsecase) GetSession(ctx context.Context, sessionID string) (*entity.SessionView, error) {
	unlock := uc.lock(sessionID)
	defer unlock()

	s, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.view(s, uc.completedSessions(ctx, s.ClientID)), nil
}

// Snapshot returns a deep copy of the session aggregate.
func (uc *ConversationUsecase) Snapshot(ctx context.Context, sessionID string) (*entity.SessionState, error) {
	unlock := uc.lock(sessionID)
	defer unlock()

	s, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// SubmitFreeText handles typed input in any phase that accepts it.
func (uc *ConversationUsecase) SubmitFreeText(ctx context.Context, sessionID, text string) (*entity.SessionView, error) {
	return uc.mutate(ctx, sessionID, "submit_text", func(ctx context.Context, s *entity.SessionState) error {
		return uc.handleInput(ctx, s, text)
	})
}

// SubmitChoice handles a quick action or a choice button.
func (uc *ConversationUsecase) SubmitChoice(ctx context.Context, sessionID, label string) (*entity.SessionView, error) {
	return uc.mutate(ctx, sessionID, "submit_choice", func(ctx context.Context, s *entity.SessionState) error {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("%w: empty choice", entity.ErrInvalidParameter)
		}
		return uc.handleInput(ctx, s, label)
	})
}

// SubmitStructuredEntries handles the references widget. none is the explicit "I don't have any" action.
func (uc *ConversationUsecase) SubmitStructuredEntries(
	ctx context.Context, sessionID string, entries []entity.ReferenceEntry, none bool,
) (*entity.SessionView, error) {
	return uc.mutate(ctx, sessionID, "submit_references", func(ctx context.Context, s *entity.SessionState) error {
		q, ok := uc.currentQuestion(s)
		if !ok || q.Kind != InputEntries {
			return fmt.Errorf("%w: references at phase %s", entity.ErrWrongInput, s.Phase)
		}
		return uc.answer(ctx, s, q, Answer{Structured: true, Entries: entries, None: none})
	})
}

func (uc *ConversationUsecase) mutate(
	ctx context.Context, sessionID, action string, fn func(context.Context, *entity.SessionState) error,
) (*entity.SessionView, error) {
	ctx = logger.WithAction(logger.WithSession(ctx, sessionID), action)

	unlock := uc.lock(sessionID)
	defer unlock()

	s, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Closed {
		return nil, entity.ErrSessionClosed
	}
	if s.Busy {
		return nil, entity.ErrSessionBusy
	}

	lastID := s.NextMessageID - 1
	if err := fn(ctx, s); err != nil {
		return nil, err
	}
	uc.commit(ctx, s, lastID)

	return uc.view(s, uc.completedSessions(ctx, s.ClientID)), nil
}

// handleInput routes free text or a choice label by phase.
func (uc *ConversationUsecase) handleInput(ctx context.Context, s *entity.SessionState, text string) error {
	switch {
	case s.Phase == entity.PhaseInitial || s.Phase == entity.PhaseUserChoice:
		return uc.chooseFlow(ctx, s, text)
	case s.Phase.IsComplete():
		return uc.handleLifecycleText(ctx, s, text)
	}

	q, ok := uc.currentQuestion(s)
	if !ok {
		return uc.integrityFailure(ctx, s, &entity.FlowIntegrityError{
			Flow:   s.Flow,
			Index:  s.QuestionIndex,
			Reason: fmt.Sprintf("phase %s does not match catalog", s.Phase),
		})
	}
	if q.Kind == InputEntries {
		s.AppendBot(msgUseReferences)
		return nil
	}
	return uc.answer(ctx, s, q, Answer{Text: text})
}

func (uc *ConversationUsecase) chooseFlow(ctx context.Context, s *entity.SessionState, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty message", entity.ErrMissingField)
	}
	s.AppendUser(text)

	flow := detectFlow(text)
	if flow == entity.FlowNone {
		s.Phase = entity.PhaseUserChoice
		s.AppendBot(msgChooseFlow)
		return nil
	}

	s.Flow = flow
	s.Responses = entity.NewResponses()
	if flow == entity.FlowRedesign {
		s.AppendBot(msgStartRedesign)
	} else {
		s.AppendBot(msgStartNewSite)
	}

	ctxzap.Info(ctx, "flow selected", zap.String("flow", string(flow)))

	return uc.moveTo(ctx, s, NextIndex(uc.catalog, flow, -1, s.Responses))
}

func detectFlow(text string) entity.Flow {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "redesign"):
		return entity.FlowRedesign
	case strings.Contains(lower, "new webpage"),
		strings.Contains(lower, "new website"),
		strings.Contains(lower, "scratch"):
		return entity.FlowNewWebsite
	default:
		return entity.FlowNone
	}
}

// answer applies the processor outcome. Store updates and navigation happen together or not at all.
func (uc *ConversationUsecase) answer(ctx context.Context, s *entity.SessionState, q Question, a Answer) error {
	outcome, err := uc.processor.Process(q, s.Responses, a)
	if err != nil {
		var fie *entity.FlowIntegrityError
		if errors.As(err, &fie) {
			fie.Flow = s.Flow
			fie.Index = s.QuestionIndex
			return uc.integrityFailure(ctx, s, fie)
		}
		return err
	}

	if outcome.Echo != "" {
		s.AppendUser(outcome.Echo)
	}

	switch outcome.Action {
	case ActionReject:
		s.AppendBot(outcome.Reply)
		return nil
	case ActionSuspend:
		s.Responses = outcome.Responses
		s.AppendBot(outcome.Reply)
		return nil
	case ActionToggle:
		s.Responses = outcome.Responses
		return nil
	default:
		s.Responses = outcome.Responses
		if outcome.Reply != "" {
			s.AppendBot(outcome.Reply)
		}
		return uc.moveTo(ctx, s, NextIndex(uc.catalog, s.Flow, s.QuestionIndex, s.Responses))
	}
}

// moveTo positions the session at next and asks its question, or starts generation on Complete.
func (uc *ConversationUsecase) moveTo(ctx context.Context, s *entity.SessionState, next int) error {
	if next == Complete {
		s.Phase = s.Flow.CompletePhase()
		s.QuestionIndex = uc.catalog.Len(s.Flow)
		uc.startGeneration(ctx, s)
		return nil
	}

	q, err := uc.catalog.At(s.Flow, next)
	if err != nil {
		var fie *entity.FlowIntegrityError
		if errors.As(err, &fie) {
			return uc.integrityFailure(ctx, s, fie)
		}
		return err
	}

	s.QuestionIndex = next
	s.Phase = q.Phase

	prompt := entity.PromptNone
	if q.Kind == InputEntries {
		prompt = entity.PromptReferences
	}
	s.Append(entity.Message{Text: q.Prompt, Sender: entity.SenderBot, Prompt: prompt})

	return nil
}

// integrityFailure logs the desync and surfaces the generic refresh message.
func (uc *ConversationUsecase) integrityFailure(ctx context.Context, s *entity.SessionState, err *entity.FlowIntegrityError) error {
	ctxzap.Error(ctx, "flow integrity failure",
		zap.String("phase", string(s.Phase)),
		zap.Error(err),
	)
	s.AppendBot(msgFlowIntegrity)
	return nil
}

func (uc *ConversationUsecase) currentQuestion(s *entity.SessionState) (Question, bool) {
	return questionOf(uc.catalog, s)
}

func (uc *ConversationUsecase) lock(sessionID string) func() {
	v, _ := uc.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// load returns the live session. Rows that cannot be decoded are dropped and reported as not found.
func (uc *ConversationUsecase) load(ctx context.Context, sessionID string) (*entity.SessionState, error) {
	if v, ok := uc.live.Get(sessionID); ok {
		return v.(*entity.SessionState), nil
	}

	s, err := uc.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, entity.ErrSessionNotFound) {
			return nil, err
		}
		perr := &entity.PersistenceError{Op: "load", SessionID: sessionID, Err: err}
		ctxzap.Error(ctx, "failed to restore session, dropping it", zap.Error(perr))
		if derr := uc.store.Delete(ctx, sessionID); derr != nil {
			ctxzap.Warn(ctx, "failed to delete broken session", zap.Error(derr))
		}
		return nil, entity.ErrSessionNotFound
	}

	uc.live.Set(sessionID, s, cache.DefaultExpiration)
	return s, nil
}

// commit refreshes the live copy, saves a snapshot in the background and publishes
// every message appended after lastID. Callers hold the session lock.
func (uc *ConversationUsecase) commit(ctx context.Context, s *entity.SessionState, lastID int64) {
	s.UpdatedAt = uc.now()
	uc.live.Set(s.ID, s, cache.DefaultExpiration)

	snapshot := s.Clone()
	uc.detach(ctx, "persist_session", func(ctx context.Context) {
		if err := uc.store.Save(ctx, snapshot); err != nil {
			perr := &entity.PersistenceError{Op: "save", SessionID: snapshot.ID, Err: err}
			ctxzap.Error(ctx, "failed to persist session, continuing in memory", zap.Error(perr))
			if derr := uc.store.Delete(ctx, snapshot.ID); derr != nil {
				ctxzap.Warn(ctx, "failed to clear persisted session", zap.Error(derr))
			}
		}
	})

	if uc.publisher == nil {
		return
	}
	for _, m := range s.MessagesSince(lastID) {
		msg := m
		uc.publisher.Publish(entity.SessionEvent{
			Type:      entity.EventMessage,
			SessionID: s.ID,
			Message:   &msg,
			Busy:      s.Busy,
			Closed:    s.Closed,
		})
	}
	uc.publisher.Publish(entity.SessionEvent{
		Type:      entity.EventState,
		SessionID: s.ID,
		Busy:      s.Busy,
		Closed:    s.Closed,
	})
}

// detach runs fn outside the caller's lifetime with the caller's logger.
func (uc *ConversationUsecase) detach(ctx context.Context, action string, fn func(context.Context)) {
	taskCtx := logger.Detach(ctx, zap.String("task", action))
	uc.tasks.Add(1)
	go func() {
		defer uc.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				ctxzap.Error(taskCtx, "detached task panicked", zap.Any("panic", r))
			}
		}()
		fn(taskCtx)
	}()
}

// completedSessions reads the client counter. A failed read does not block the conversation.
func (uc *ConversationUsecase) completedSessions(ctx context.Context, clientID string) int {
	count, err := uc.counter.Count(ctx, clientID)
	if err != nil {
		ctxzap.Warn(ctx, "failed to read session counter",
			zap.Error(&entity.PersistenceError{Op: "count", Err: err}))
		return 0
	}
	return count
}

func newSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
