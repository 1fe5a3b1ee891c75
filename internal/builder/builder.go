package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/api"
	chatapi "github.com/futig/design-agent/internal/api/chat"
	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/integration/artifact"
	"github.com/futig/design-agent/internal/integration/llm"
	"github.com/futig/design-agent/internal/integration/screenshot"
	"github.com/futig/design-agent/internal/integration/webhook"
	"github.com/futig/design-agent/internal/pkg/extractor"
	"github.com/futig/design-agent/internal/pkg/formatter"
	"github.com/futig/design-agent/internal/pkg/progress"
	"github.com/futig/design-agent/internal/pkg/validator"
	"github.com/futig/design-agent/internal/telegram"
	"github.com/futig/design-agent/internal/usecase/conversation"
	"github.com/futig/design-agent/internal/usecase/generation"
)

// core is the part of the application shared by the HTTP server and the Telegram bot
type core struct {
	cfg          *config.Config
	logger       *zap.Logger
	storage      *storage
	hub          *progress.Hub
	exporter     *formatter.Factory
	conversation *conversation.ConversationUsecase
}

func buildCore(ctx context.Context, component string) (*core, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	logger = logger.With(zap.String("component", component))

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("storage_driver", cfg.StorageDriver),
	)

	store, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Repositories initialized")

	// Initialize external service connectors (with mock support)
	var (
		llmConnector        generation.LLM
		screenshotConnector generation.Screenshotter
		artifactStore       generation.ArtifactStore
		notifier            conversation.Notifier
	)

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llmConnector = llm.NewMockConnector(logger)
		screenshotConnector = screenshot.NewMockConnector(logger)
		notifier = webhook.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")

		llmConnector, err = setupLLM(ctx, cfg.LLMCfg, logger)
		if err != nil {
			store.close()
			return nil, err
		}

		screenshotConnector, err = screenshot.NewConnector(cfg.ScreenshotCfg, logger)
		if err != nil {
			store.close()
			return nil, fmt.Errorf("setup screenshot connector: %w", err)
		}

		notifier = webhook.NewConnector(cfg.WebhookCfg, store.notifications, logger)
	}

	if cfg.ArtifactCfg.Enabled() {
		s, err := artifact.NewStore(cfg.ArtifactCfg, logger)
		if err != nil {
			store.close()
			return nil, fmt.Errorf("setup artifact store: %w", err)
		}
		artifactStore = s
		logger.Info("Artifact archiving enabled", zap.String("bucket", cfg.ArtifactCfg.Bucket))
	}

	references, err := extractor.NewReferenceValidator()
	if err != nil {
		store.close()
		return nil, fmt.Errorf("compile reference schema: %w", err)
	}

	hub := progress.NewHub()

	generationUC := generation.NewUsecase(
		llmConnector,
		screenshotConnector,
		artifactStore,
		references,
		cfg.GenerationCfg,
	)

	conversationUC := conversation.NewUsecase(
		conversation.DefaultCatalog(),
		generationUC,
		store.sessions,
		store.counter,
		notifier,
		hub,
		cfg.SessionCfg,
		logger,
	)
	logger.Info("Use cases initialized")

	return &core{
		cfg:          cfg,
		logger:       logger,
		storage:      store,
		hub:          hub,
		exporter:     formatter.NewFactory(),
		conversation: conversationUC,
	}, nil
}

// setupLLM registers a connector for every provider that has credentials
func setupLLM(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*llm.Router, error) {
	router := llm.NewRouter()

	if cfg.Anthropic.APIKey != "" {
		router.Register(entity.ProviderAnthropic, llm.NewAnthropicConnector(cfg.Anthropic, logger))
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiConnector(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("setup gemini connector: %w", err)
		}
		router.Register(entity.ProviderGemini, gemini)
	}

	if cfg.OpenAIAPIKey != "" {
		router.Register(entity.ProviderOpenAI, llm.NewOpenAIConnector(cfg.OpenAIAPIKey, cfg.OpenAIURL, logger))
	}

	return router, nil
}

func Build() (*App, error) {
	c, err := buildCore(context.Background(), "http")
	if err != nil {
		return nil, err
	}

	// Setup API handlers
	chatHandler := chatapi.NewHandler(c.conversation, c.exporter, c.hub, validator.New())
	c.logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(chatHandler, api.RouterConfig{
		RequestTimeout: c.cfg.ServerRequestTimeout,
		AllowedOrigins: c.cfg.CORSAllowedOrigins,
	}, c.logger)
	c.logger.Info("HTTP router configured")

	// Create HTTP server. WriteTimeout stays unset: progress streams are long lived
	// and regular routes are bounded by the router timeout.
	server := &http.Server{
		Addr:              c.cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	c.logger.Info("Application built successfully",
		zap.String("environment", c.cfg.Environment),
		zap.String("server_addr", c.cfg.ServerAddr),
	)

	return &App{
		server:   server,
		sessions: c.conversation,
		closeDB:  c.storage.close,
		logger:   c.logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (*TelegramApp, error) {
	c, err := buildCore(context.Background(), "telegram")
	if err != nil {
		return nil, err
	}

	bot, err := telegram.NewBot(&c.cfg.TelegramCfg, c.conversation, c.exporter, c.hub, c.storage.telegram, c.logger)
	if err != nil {
		c.storage.close()
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	c.logger.Info("Telegram bot built successfully",
		zap.String("environment", c.cfg.Environment),
	)

	return &TelegramApp{
		bot:             bot,
		sessions:        c.conversation,
		closeDB:         c.storage.close,
		shutdownTimeout: time.Duration(c.cfg.TelegramCfg.ShutdownTimeout) * time.Second,
		logger:          c.logger,
	}, nil
}
