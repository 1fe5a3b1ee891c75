package telegram

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/telegram/bot"
	"github.com/futig/design-agent/internal/telegram/handlers"
	"github.com/futig/design-agent/internal/telegram/state"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NewBot initializes the telegram bot with all dependencies
func NewBot(
	cfg *config.TelegramConfig,
	conversation handlers.ConversationUsecase,
	exporter handlers.Exporter,
	events handlers.EventSource,
	storage state.Storage,
	logger *zap.Logger,
) (Bot, error) {
	// Create state manager
	stateManager := state.NewManager(storage)

	// Create bot instance
	b, err := bot.New(cfg, stateManager, conversation, exporter, events, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	// Register handlers
	registerHandlers(b, logger)

	logger.Info("telegram bot initialized successfully")

	return b, nil
}

// registerHandlers registers all handlers with the bot
func registerHandlers(b *bot.Bot, logger *zap.Logger) {
	deps := b.Deps()

	// Register callback handler (handles all button clicks)
	b.RegisterHandler(handlers.NewCallbackHandler(deps))

	// Register text handler (answers, feedback, email)
	b.RegisterHandler(handlers.NewTextHandler(deps))

	// Register references handler (reference websites, line by line)
	b.RegisterHandler(handlers.NewReferencesHandler(deps))

	logger.Info("telegram handlers registered",
		zap.Int("handler_count", 3),
	)
}
