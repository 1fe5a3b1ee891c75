package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/telegram"
)

// backgroundTasks is implemented by the conversation usecase
type backgroundTasks interface {
	Wait()
}

// App represents the HTTP application with all its components
type App struct {
	server   *http.Server
	sessions backgroundTasks
	closeDB  func()
	logger   *zap.Logger
}

// Run starts the application and all its daemons
func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	// Start HTTP server in goroutine
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		a.closeDB()
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	return a.shutdown()
}

// shutdown gracefully shuts down the application
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")

	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
	}

	waitTasks(ctx, a.sessions, a.logger)

	a.logger.Info("Closing database connections")
	a.closeDB()

	a.logger.Info("Application stopped gracefully")
	return err
}

// TelegramApp runs the Telegram front end
type TelegramApp struct {
	bot             telegram.Bot
	sessions        backgroundTasks
	closeDB         func()
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

func (a *TelegramApp) Logger() *zap.Logger {
	return a.logger
}

// Run starts the bot and blocks until ctx is cancelled
func (a *TelegramApp) Run(ctx context.Context) error {
	defer func() { _ = a.logger.Sync() }()

	if err := a.bot.Start(ctx); err != nil {
		a.closeDB()
		return err
	}
	a.logger.Info("Telegram bot is running")

	<-ctx.Done()
	a.logger.Info("Stopping Telegram bot")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	err := a.bot.Stop(shutdownCtx)
	if err != nil {
		a.logger.Error("Bot shutdown error", zap.Error(err))
	}

	waitTasks(shutdownCtx, a.sessions, a.logger)
	a.closeDB()

	a.logger.Info("Telegram bot stopped gracefully")
	return err
}

// waitTasks lets running generations and notifications finish until ctx expires
func waitTasks(ctx context.Context, tasks backgroundTasks, logger *zap.Logger) {
	done := make(chan struct{})
	go func() {
		tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Background tasks finished")
	case <-ctx.Done():
		logger.Warn("Background tasks still running at shutdown")
	}
}
