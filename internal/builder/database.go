package builder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/integration/webhook"
	"github.com/futig/design-agent/internal/repository"
	"github.com/futig/design-agent/internal/repository/sqlite"
	"github.com/futig/design-agent/internal/telegram/state"
	"github.com/futig/design-agent/internal/usecase/conversation"
)

// storage groups the repositories of the configured driver
type storage struct {
	sessions      conversation.SessionStore
	counter       conversation.SessionCounter
	notifications webhook.NotificationLog
	telegram      state.Storage
	close         func()
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("SQLite store opened", zap.String("path", cfg.SQLitePath))

		return &storage{
			sessions:      store,
			counter:       store,
			notifications: store,
			telegram:      store.TelegramStates(),
			close: func() {
				if err := store.Close(); err != nil {
					logger.Error("Close sqlite store", zap.Error(err))
				}
			},
		}, nil
	default:
		db, err := setupDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}

		logger.Info("Running database migrations")
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		counter := repository.NewCounterPostgres(db)
		return &storage{
			sessions:      repository.NewSessionPostgres(db),
			counter:       counter,
			notifications: counter,
			telegram:      repository.NewTelegramStateRepository(db),
			close:         db.Close,
		}, nil
	}
}

// setupDatabase creates a new database connection pool
func setupDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	// Configure pool settings from config
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(cfg.DBMinConns)
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.DBHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connection pool established",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
		zap.Duration("max_conn_lifetime", poolConfig.MaxConnLifetime),
		zap.Duration("max_conn_idle_time", poolConfig.MaxConnIdleTime),
	)

	return pool, nil
}
