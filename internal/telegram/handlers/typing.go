package handlers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// typingInterval is below the 5 second lifetime of a Telegram chat action
const typingInterval = 4 * time.Second

// TypingNotifier sends periodic "typing" actions while a generation runs
type TypingNotifier struct {
	sender *MessageSender
	chatID int64
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// NewTypingNotifier creates a new typing indicator
func NewTypingNotifier(sender *MessageSender, chatID int64, logger *zap.Logger) *TypingNotifier {
	return &TypingNotifier{
		sender: sender,
		chatID: chatID,
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start sends a typing action now and every typingInterval until Stop or ctx end
func (t *TypingNotifier) Start(ctx context.Context) {
	t.send()

	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.send()
			case <-t.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops sending typing indicators. It is safe to call more than once.
func (t *TypingNotifier) Stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *TypingNotifier) send() {
	if err := t.sender.Typing(t.chatID); err != nil {
		t.logger.Warn("failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", t.chatID),
		)
	}
}
