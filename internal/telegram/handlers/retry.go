package handlers

import (
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	maxSendRetries = 3
	retrySleepBase = time.Second
)

// sendCriticalMessage sends a message that must be delivered (transcript entries, documents)
func (s *MessageSender) sendCriticalMessage(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	return retry.DoWithData(
		func() (tgbotapi.Message, error) {
			return s.SendMessage(chatID, text, markup)
		},
		retry.Attempts(maxSendRetries),
		retry.Delay(retrySleepBase),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableSend),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("failed to send message, retrying",
				zap.Error(err),
				zap.Uint("attempt", n+1),
				zap.Int("max_retries", maxSendRetries),
				zap.Int64("chat_id", chatID),
			)
		}),
	)
}

// isRetryableSend skips retries for requests Telegram rejected as malformed
func isRetryableSend(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return true
}
