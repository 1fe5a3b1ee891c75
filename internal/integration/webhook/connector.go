package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/config"
	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/integration/common"
	"github.com/futig/design-agent/internal/pkg/retry"
	pkghttp "github.com/futig/design-agent/pkg/http"
)

const (
	providerName = "google_chat"

	// Google Chat answers with the created message only
	maxReplySize = 64 << 10
)

// NotificationLog persists which sessions were already announced.
type NotificationLog interface {
	IsNotified(ctx context.Context, sessionID string) (bool, error)
	MarkNotified(ctx context.Context, sessionID string) error
}

// Connector posts a card to a Google Chat space when a session closes.
// Each session id is announced at most once.
type Connector struct {
	config    config.WebhookConfig
	connector *pkghttp.Connector
	retrier   *retry.Retrier
	log       NotificationLog
	sent      *cache.Cache
	logger    *zap.Logger
}

func NewConnector(cfg config.WebhookConfig, log NotificationLog, logger *zap.Logger) *Connector {
	return &Connector{
		config:    cfg,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger, pkghttp.WithMaxResponseSize(maxReplySize)),
		retrier:   retry.NewRetrier(&cfg.Retry),
		log:       log,
		sent:      cache.New(cache.NoExpiration, 0),
		logger:    logger,
	}
}

func (c *Connector) NotifySessionComplete(ctx context.Context, record entity.SessionRecord) error {
	if c.config.Url == "" {
		ctxzap.Debug(ctx, "webhook url not configured, skipping notification")
		return nil
	}

	if !c.claim(record.SessionID) {
		ctxzap.Debug(ctx, "session already notified", zap.String("session_id", record.SessionID))
		return nil
	}

	if c.log != nil {
		notified, err := c.log.IsNotified(ctx, record.SessionID)
		if err != nil {
			ctxzap.Warn(ctx, "failed to read notification flag", zap.Error(err))
		}
		if notified {
			return nil
		}
	}

	message := BuildCard(record)
	_, err := retry.WithRetry(ctx, c.retrier, "webhook", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.send(ctx, message)
	})
	if err != nil {
		c.sent.Delete(record.SessionID)
		return fmt.Errorf("send session card: %w", err)
	}

	if c.log != nil {
		if err := c.log.MarkNotified(ctx, record.SessionID); err != nil {
			ctxzap.Warn(ctx, "failed to persist notification flag", zap.Error(err))
		}
	}

	ctxzap.Info(ctx, "session notification sent", zap.String("session_id", record.SessionID))
	return nil
}

// claim reserves the session id for this process.
func (c *Connector) claim(sessionID string) bool {
	return c.sent.Add(sessionID, struct{}{}, cache.NoExpiration) == nil
}

func (c *Connector) send(ctx context.Context, message *entity.ChatCardMessage) error {
	err := c.connector.DoRequest(ctx, http.MethodPost, "", message, nil,
		pkghttp.WithURL(c.config.Url),
		pkghttp.WithHeader("Content-Type", "application/json; charset=UTF-8"),
	)
	if err == nil || ctx.Err() != nil {
		return err
	}

	var netErr *pkghttp.NetworkError
	if errors.As(err, &netErr) {
		return &entity.ProviderError{Provider: providerName, Message: err.Error(), Code: "NETWORK_ERROR", Retryable: true, Err: err}
	}
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return &entity.ProviderError{
			Provider:  providerName,
			Message:   httpErr.Message,
			Code:      fmt.Sprintf("HTTP_%d", httpErr.StatusCode),
			Retryable: httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError,
			Err:       err,
		}
	}
	return &entity.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
}

// MockConnector logs the card instead of sending it.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{logger: logger}
}

func (m *MockConnector) NotifySessionComplete(ctx context.Context, record entity.SessionRecord) error {
	card := BuildCard(record)
	ctxzap.Info(ctx, "[MOCK] session notification",
		zap.String("session_id", record.SessionID),
		zap.Int("sections", len(card.CardsV2[0].Card.Sections)),
	)
	return nil
}
