package retry

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/design-agent/internal/entity"
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
	defaultMaxDelay = 8 * time.Second
)

type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"1s"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"8s"`
}

// ToRetryOptions returns exponential backoff options: Delay, 2*Delay, 4*Delay...
func (rc *RetryConfig) ToRetryOptions() []retry.Option {
	return []retry.Option{
		retry.Attempts(rc.Attempts),
		retry.Delay(rc.Delay),
		retry.MaxDelay(rc.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
		MaxDelay: defaultMaxDelay,
	}
}

// Call is one external call guarded by the retry layer.
type Call[T any] func(ctx context.Context) (T, error)

// Retrier retries calls that fail with a retryable ProviderError.
type Retrier struct {
	cfg RetryConfig
}

func NewRetrier(cfg *RetryConfig) *Retrier {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	c := *cfg
	if c.Attempts == 0 {
		c.Attempts = defaultAttempts
	}
	return &Retrier{cfg: c}
}

// Attempts returns the configured attempt cap.
func (r *Retrier) Attempts() uint {
	return r.cfg.Attempts
}

// WithRetry runs call up to the attempt cap. Non-retryable errors stop immediately.
// The returned error is always a *entity.ProviderError or a context error.
func WithRetry[T any](ctx context.Context, r *Retrier, name string, call Call[T]) (T, error) {
	attempt := 0
	opts := append(r.cfg.ToRetryOptions(),
		retry.Context(ctx),
		retry.RetryIf(entity.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Warn(ctx, "retrying external call",
				zap.String("call", name),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)

	res, err := retry.DoWithData(func() (T, error) {
		attempt++
		return call(ctx)
	}, opts...)
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return res, err
	}

	ctxzap.Error(ctx, "external call failed",
		zap.String("call", name),
		zap.Int("attempts", attempt),
		zap.Error(err),
	)

	return res, classify(name, err)
}

// WithFallback tries primary and, only if it fails, fallback.
// The primary error is logged and dropped; a fallback failure is returned as is.
func WithFallback[T any](ctx context.Context, name string, primary, fallback Call[T]) (T, error) {
	res, err := primary(ctx)
	if err == nil {
		return res, nil
	}

	ctxzap.Warn(ctx, "primary call failed, switching to fallback",
		zap.String("call", name),
		zap.Error(err),
	)

	return fallback(ctx)
}

func classify(name string, err error) error {
	var pe *entity.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &entity.ProviderError{
		Provider: name,
		Message:  err.Error(),
		Code:     "UNKNOWN",
		Err:      err,
	}
}
