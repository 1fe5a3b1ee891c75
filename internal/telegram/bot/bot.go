package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/logger"
	"github.com/futig/design-agent/internal/telegram/handlers"
	"github.com/futig/design-agent/internal/telegram/keyboard"
	"github.com/futig/design-agent/internal/telegram/middleware"
	"github.com/futig/design-agent/internal/telegram/render"
	"github.com/futig/design-agent/internal/telegram/state"
)

// Bot represents the Telegram bot
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.TelegramConfig
	deps        *handlers.Deps
	commands    *handlers.CommandHandler
	handlers    map[string]handlers.Handler
	logger      *zap.Logger
	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware
	updatesChan tgbotapi.UpdatesChannel
	inflight    chan struct{}
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// New creates a new Telegram bot
func New(
	cfg *config.TelegramConfig,
	stateManager *state.Manager,
	conversation handlers.ConversationUsecase,
	exporter handlers.Exporter,
	events handlers.EventSource,
	logger *zap.Logger,
) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is empty")
	}

	// Create bot API instance
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	sender := handlers.NewMessageSender(api, logger)
	kb := keyboard.NewBuilder()
	transcript := handlers.NewTranscript(sender, stateManager, kb)

	deps := &handlers.Deps{
		Sender:       sender,
		States:       stateManager,
		Conversation: conversation,
		Exporter:     exporter,
		Keyboard:     kb,
		Transcript:   transcript,
		Relay:        handlers.NewProgressRelay(events, stateManager, conversation, transcript, sender, logger),
		Logger:       logger,
	}

	bot := &Bot{
		api:      api,
		cfg:      cfg,
		deps:     deps,
		commands: handlers.NewCommandHandler(deps),
		logger:   logger,
		handlers: make(map[string]handlers.Handler),
		inflight: make(chan struct{}, max(cfg.MaxConcurrentUsers, 1)),
		stopChan: make(chan struct{}),
	}

	// Initialize middleware
	bot.loggingMW = middleware.NewLoggingMiddleware(logger)
	bot.recoveryMW = middleware.NewRecoveryMiddleware(logger, sender)
	bot.rateLimitMW = middleware.NewRateLimiterMiddleware(
		cfg.RateLimitPerMinute,
		cfg.RateLimitBurst,
		logger,
		sender,
	)

	return bot, nil
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	// Add logger to context for processUpdates
	ctx = ctxzap.ToContext(ctx, b.logger)
	b.deps.Relay.Start(ctx)

	// Configure updates
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	// Start update processing loop
	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops receiving updates and waits for active handlers until ctx expires
func (b *Bot) Stop(ctx context.Context) error {
	b.logger.Info("stopping telegram bot")

	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.api.StopReceivingUpdates()
		b.rateLimitMW.Close()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		b.deps.Relay.Stop()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-ctx.Done():
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed")
		return fmt.Errorf("shutdown timeout exceeded: %w", ctx.Err())
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

// processUpdates processes incoming updates
func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				return
			}
			// Bound the number of updates handled at once
			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				return
			case <-b.stopChan:
				return
			}

			// Process update with middleware in separate goroutine
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer func() {
					<-b.inflight
					b.wg.Done()
				}()
				b.handleUpdateWithMiddleware(ctx, u)
			}(update)
		}
	}
}

// handleUpdateWithMiddleware processes update through middleware chain
func (b *Bot) handleUpdateWithMiddleware(ctx context.Context, update tgbotapi.Update) {
	// Rate limiter middleware (first to check)
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		// Logging middleware
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			// Recovery middleware
			b.recoveryMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.handleUpdate(ctx, u3)
			})
		})
	})
}

// handleUpdate routes update to appropriate handler
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Handle callback queries
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		ctx = logger.AddFields(ctx, zap.Int64("user_id", update.CallbackQuery.From.ID))
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	// Handle messages
	if update.Message != nil && update.Message.From != nil {
		ctx = logger.AddFields(ctx, zap.Int64("user_id", update.Message.From.ID))
		b.handleMessage(ctx, update.Message)
		return
	}
}

// handleMessage handles incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	msg := &handlers.Message{
		ChatID:    message.Chat.ID,
		UserID:    message.From.ID,
		MessageID: message.MessageID,
		Text:      message.Text,
	}

	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message.Command(), msg)
		return
	}

	if msg.Text == "" {
		b.sendError(msg.ChatID, render.MsgUseText)
		return
	}

	// Get telegram session
	ts, err := b.deps.States.GetSession(ctx, msg.UserID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		ctxzap.Error(ctx, "failed to get telegram session", zap.Error(err))
		b.sendError(msg.ChatID, render.ErrGeneric)
		return
	}

	// Check if user has active session
	if ts == nil || ts.SessionID == "" {
		b.sendError(msg.ChatID, render.MsgNoSession)
		return
	}
	ctx = logger.WithSession(ctx, ts.SessionID)

	// Sessions bound before a restart are followed again on first contact
	if err := b.deps.Relay.Watch(ts.SessionID); err != nil {
		ctxzap.Warn(ctx, "failed to follow session progress", zap.Error(err))
	}

	view, err := b.deps.Conversation.GetSession(ctx, ts.SessionID)
	if err != nil {
		if errors.Is(err, entity.ErrSessionNotFound) {
			b.sendError(msg.ChatID, render.MsgNoSession)
			return
		}
		ctxzap.Error(ctx, "failed to load session", zap.Error(err))
		b.sendError(msg.ChatID, render.ErrGeneric)
		return
	}
	msg.SessionID = ts.SessionID
	msg.View = view

	// Route to the handler of the input the session waits for
	handlerState := handlers.HandlerStateText
	if view.Widget == entity.WidgetReferences && !view.IsBusy {
		handlerState = handlers.HandlerStateReferences
	}

	handler, exists := b.handlers[handlerState]
	if !exists {
		ctxzap.Warn(ctx, "no handler for state", zap.String("state", handlerState))
		b.sendError(msg.ChatID, render.ErrGeneric)
		return
	}

	if err := handler.Handle(ctx, msg); err != nil {
		ctxzap.Error(ctx, "handler error",
			zap.Error(err),
			zap.String("state", handlerState),
		)
		b.sendError(msg.ChatID, render.ErrGeneric)
	}
}

// handleCommand handles bot commands
func (b *Bot) handleCommand(ctx context.Context, command string, msg *handlers.Message) {
	ctxzap.Info(ctx, "command received", zap.String("command", command))

	var err error
	switch command {
	case "start":
		err = b.commands.Start(ctx, msg)
	case "help":
		err = b.commands.Help(ctx, msg)
	case "cancel":
		err = b.commands.Cancel(ctx, msg)
	default:
		b.sendError(msg.ChatID, render.MsgUnknownCommand)
		return
	}

	if err != nil {
		ctxzap.Error(ctx, "command failed",
			zap.Error(err),
			zap.String("command", command),
		)
		b.sendError(msg.ChatID, render.ErrGeneric)
	}
}

// handleCallbackQuery handles callback button clicks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	handler, exists := b.handlers[handlers.HandlerStateCallback]
	if !exists {
		ctxzap.Warn(ctx, "callback handler not registered")
		b.deps.Sender.AnswerCallback(query.ID, "❌ Unavailable")
		return
	}

	msg := &handlers.Message{
		ChatID:       query.Message.Chat.ID,
		UserID:       query.From.ID,
		MessageID:    query.Message.MessageID,
		CallbackData: query.Data,
		CallbackID:   query.ID,
	}

	ctxzap.Info(ctx, "callback query received", zap.String("data", query.Data))

	if err := handler.Handle(ctx, msg); err != nil {
		ctxzap.Error(ctx, "callback handler error", zap.Error(err))
		b.sendError(msg.ChatID, render.ErrGeneric)
	}
}

// sendError sends an error message
func (b *Bot) sendError(chatID int64, text string) {
	_ = b.deps.Sender.Send(chatID, text, nil)
}

// RegisterHandler registers a handler for a state
func (b *Bot) RegisterHandler(handler handlers.Handler) {
	state := handler.GetState()

	// Validate state
	if !handlers.IsValidState(state) {
		b.logger.Fatal("invalid handler state",
			zap.String("state", state),
		)
	}

	b.handlers[state] = handler
	b.logger.Info("handler registered",
		zap.String("state", state),
	)
}

// Deps returns the dependencies shared by handlers
func (b *Bot) Deps() *handlers.Deps {
	return b.deps
}
