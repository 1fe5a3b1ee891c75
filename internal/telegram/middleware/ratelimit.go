package middleware

import (
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	bucketIdleTTL        = time.Hour
	bucketSweepInterval  = 10 * time.Minute
	defaultWarnThrottle  = 30 * time.Second
	tokensPerRequestCost = 1.0
)

var rateLimitWarnings = []string{
	"⚠️ Too many requests. Please wait a moment.",
	"⚠️ Rate limit exceeded. Wait about 30 seconds before trying again.",
	"🛑 You are sending requests too often. Please wait a minute.",
}

// bucket is the token bucket of one user
type bucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	warnings int
	warnedAt time.Time
}

// take refills the bucket up to capacity and spends one token if there is one
func (b *bucket) take(now time.Time, capacity, perSecond float64) bool {
	b.tokens += now.Sub(b.refilled).Seconds() * perSecond
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.refilled = now

	if b.tokens < tokensPerRequestCost {
		return false
	}
	b.tokens -= tokensPerRequestCost
	b.warnings = 0
	return true
}

// RateLimiterMiddleware drops updates of users that exceed their token bucket.
// Buckets of idle users expire from the cache.
type RateLimiterMiddleware struct {
	buckets      *cache.Cache
	create       sync.Mutex
	capacity     float64
	perSecond    float64
	warnThrottle time.Duration
	logger       *zap.Logger
	notifier     Notifier
	now          func() time.Time
}

// NewRateLimiterMiddleware allows requestsPerMinute on average with bursts up to burstSize.
// A non positive burstSize makes the burst a full minute of requests.
func NewRateLimiterMiddleware(
	requestsPerMinute int,
	burstSize int,
	logger *zap.Logger,
	notifier Notifier,
) *RateLimiterMiddleware {
	capacity := float64(requestsPerMinute)
	if burstSize > 0 {
		capacity = float64(burstSize)
	}

	return &RateLimiterMiddleware{
		buckets:      cache.New(bucketIdleTTL, bucketSweepInterval),
		capacity:     capacity,
		perSecond:    float64(requestsPerMinute) / 60.0,
		warnThrottle: defaultWarnThrottle,
		logger:       logger,
		notifier:     notifier,
		now:          time.Now,
	}
}

func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	userID, chatID := updateSource(update)
	if userID == 0 {
		next(update)
		return
	}

	if !rl.allow(userID, chatID) {
		rl.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID),
		)
		return
	}

	next(update)
}

func (rl *RateLimiterMiddleware) allow(userID, chatID int64) bool {
	now := rl.now()
	b := rl.bucketFor(userID, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.take(now, rl.capacity, rl.perSecond) {
		return true
	}

	if now.Sub(b.warnedAt) > rl.warnThrottle {
		b.warnings++
		b.warnedAt = now
		rl.warn(chatID, b.warnings)
	}
	return false
}

// bucketFor returns the user's bucket and slides its expiry
func (rl *RateLimiterMiddleware) bucketFor(userID int64, now time.Time) *bucket {
	key := strconv.FormatInt(userID, 10)

	rl.create.Lock()
	defer rl.create.Unlock()

	b, ok := rl.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: rl.capacity, refilled: now}
	}
	rl.buckets.SetDefault(key, b)
	return b.(*bucket)
}

func (rl *RateLimiterMiddleware) warn(chatID int64, count int) {
	idx := min(count, len(rateLimitWarnings)) - 1
	if err := rl.notifier.Send(chatID, rateLimitWarnings[idx], nil); err != nil {
		rl.logger.Error("failed to send rate limit warning",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

// Close forgets every bucket
func (rl *RateLimiterMiddleware) Close() {
	rl.buckets.Flush()
}
