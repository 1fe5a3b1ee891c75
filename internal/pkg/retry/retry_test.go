package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/design-agent/internal/entity"
)

func fastRetrier() *Retrier {
	return NewRetrier(&RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
}

func TestWithRetry_RetryableExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetrier(), "test", func(context.Context) (string, error) {
		calls++
		return "", &entity.ProviderError{Provider: "test", Message: "overloaded", Code: "503", Retryable: true}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var pe *entity.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Retryable)
	assert.Equal(t, "503", pe.Code)
}

func TestWithRetry_NonRetryableStopsAtOnce(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetrier(), "test", func(context.Context) (string, error) {
		calls++
		return "", &entity.ProviderError{Provider: "test", Message: "bad key", Code: "401"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, entity.IsRetryable(err))
}

func TestWithRetry_RecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	res, err := WithRetry(context.Background(), fastRetrier(), "test", func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", &entity.ProviderError{Provider: "test", Message: "rate limited", Code: "429", Retryable: true}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_WrapsUnclassifiedErrors(t *testing.T) {
	raw := errors.New("boom")
	_, err := WithRetry(context.Background(), fastRetrier(), "screenshot", func(context.Context) (int, error) {
		return 0, raw
	})

	var pe *entity.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "screenshot", pe.Provider)
	assert.False(t, pe.Retryable)
	assert.ErrorIs(t, err, raw)
}

func TestWithFallback_PrimarySuccessSkipsFallback(t *testing.T) {
	fallbackCalled := false
	res, err := WithFallback(context.Background(), "html",
		func(context.Context) (string, error) { return "primary", nil },
		func(context.Context) (string, error) {
			fallbackCalled = true
			return "fallback", nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, "primary", res)
	assert.False(t, fallbackCalled)
}

func TestWithFallback_FallbackResultHidesPrimaryError(t *testing.T) {
	res, err := WithFallback(context.Background(), "html",
		func(context.Context) (string, error) { return "", errors.New("primary down") },
		func(context.Context) (string, error) { return "fallback", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, "fallback", res)
}

func TestWithFallback_PropagatesFallbackError(t *testing.T) {
	fallbackErr := &entity.ProviderError{Provider: "sonnet", Message: "overloaded", Retryable: true}
	_, err := WithFallback(context.Background(), "html",
		func(context.Context) (string, error) { return "", errors.New("primary down") },
		func(context.Context) (string, error) { return "", fallbackErr },
	)

	assert.Same(t, fallbackErr, err)
}
