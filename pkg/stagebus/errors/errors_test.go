package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryTransient, "transient"},
		{CategoryPermanent, "permanent"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.category.String())
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"nil error", nil, CategoryPermanent},
		{"HTTP 429", &HTTPError{StatusCode: 429}, CategoryTransient},
		{"HTTP 503", &HTTPError{StatusCode: 503}, CategoryTransient},
		{"HTTP 500", &HTTPError{StatusCode: 500}, CategoryTransient},
		{"HTTP 401", &HTTPError{StatusCode: 401}, CategoryPermanent},
		{"HTTP 404", &HTTPError{StatusCode: 404}, CategoryPermanent},
		{"process exit", &ProcessError{Command: "ffmpeg", ExitCode: 1}, CategoryPermanent},
		{"process killed", &ProcessError{Command: "yt-dlp", Signaled: true}, CategoryTransient},
		{"timeout", &TimeoutError{Operation: "transcribe", Duration: time.Minute}, CategoryTransient},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), CategoryTransient},
		{"cancelled", context.Canceled, CategoryPermanent},
		{"categorized", &CategorizedError{Category: CategoryTransient}, CategoryTransient},
		{"wrapped categorized", fmt.Errorf("outer: %w", Transient(errors.New("x"), "")), CategoryTransient},
		{"unknown", errors.New("unknown"), CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.err))
		})
	}
}

func TestCategorizedError(t *testing.T) {
	base := errors.New("failed")

	err := NewCategorized(base, CategoryTransient, "download")
	assert.Equal(t, "download: failed (category: transient, attempts: 0)", err.Error())
	assert.ErrorIs(t, err, base)

	err = Permanent(base, "")
	assert.Equal(t, "failed (category: permanent, attempts: 0)", err.Error())
	assert.False(t, IsRetryable(err))
	assert.True(t, IsRetryable(Transient(base, "")))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "HTTP 429 at /v1/summarize: slow down",
		(&HTTPError{StatusCode: 429, Endpoint: "/v1/summarize", Message: "slow down"}).Error())
	assert.Equal(t, "HTTP 500: boom", (&HTTPError{StatusCode: 500, Message: "boom"}).Error())
	assert.Equal(t, "ffmpeg exited with code 1: no audio stream",
		(&ProcessError{Command: "ffmpeg", ExitCode: 1, Stderr: "no audio stream"}).Error())
	assert.Equal(t, "ffmpeg exited with code 2", (&ProcessError{Command: "ffmpeg", ExitCode: 2}).Error())
	assert.Equal(t, "yt-dlp killed by signal", (&ProcessError{Command: "yt-dlp", Signaled: true}).Error())
	assert.Equal(t, "timeout after 1m0s: transcribe",
		(&TimeoutError{Operation: "transcribe", Duration: time.Minute}).Error())
}

func fastRetry(attempts int) RetryConfig {
	return NewRetryConfig(
		WithMaxAttempts(attempts),
		WithInitialBackoff(time.Millisecond),
		WithMaxBackoff(2*time.Millisecond),
		WithBackoffFactor(2),
		WithJitter(0),
	)
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first try", func(t *testing.T) {
		v, err := Do(ctx, fastRetry(3), "fetch", func(context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})

	t.Run("retries transient until success", func(t *testing.T) {
		calls := 0
		var waits []int
		cfg := fastRetry(3)
		cfg.OnRetry = func(op string, attempt int, err error, _ time.Duration) {
			assert.Equal(t, "fetch", op)
			assert.True(t, IsRetryable(err))
			waits = append(waits, attempt)
		}
		v, err := Do(ctx, cfg, "fetch", func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, &HTTPError{StatusCode: 503}
			}
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, waits)
	})

	t.Run("stops on permanent", func(t *testing.T) {
		calls := 0
		_, err := Do(ctx, fastRetry(5), "fetch", func(context.Context) (int, error) {
			calls++
			return 0, &HTTPError{StatusCode: 401}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)

		var ce *CategorizedError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, CategoryPermanent, ce.Category)
		assert.Equal(t, 1, ce.Retries)
		assert.Equal(t, "fetch", ce.Context)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		_, err := Do(ctx, fastRetry(4), "transcribe", func(context.Context) (int, error) {
			calls++
			return 0, &TimeoutError{Operation: "x", Duration: time.Second}
		})
		assert.Equal(t, 4, calls)
		assert.Contains(t, err.Error(), "transcribe: max retries exceeded")

		var ce *CategorizedError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, 4, ce.Retries)
		var te *TimeoutError
		assert.True(t, errors.As(err, &te))
	})

	t.Run("custom retryable func", func(t *testing.T) {
		cfg := fastRetry(3)
		cfg.Retryable = func(error) bool { return true }
		calls := 0
		_, err := Do(ctx, cfg, "", func(context.Context) (int, error) {
			calls++
			return 0, errors.New("plain")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("no retry config", func(t *testing.T) {
		calls := 0
		_, err := Do(ctx, NoRetry, "fetch", func(context.Context) (int, error) {
			calls++
			return 0, &HTTPError{StatusCode: 503}
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context before first attempt", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Do(cctx, fastRetry(3), "fetch", func(context.Context) (int, error) {
			t.Fatal("must not be called")
			return 0, nil
		})
		assert.ErrorIs(t, err, context.Canceled)

		var ce *CategorizedError
		require.True(t, errors.As(err, &ce))
		assert.Zero(t, ce.Retries)
	})

	t.Run("cancelled during backoff", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cfg := NewRetryConfig(WithMaxAttempts(3), WithInitialBackoff(time.Hour), WithJitter(0))
		_, err := Do(cctx, cfg, "fetch", func(context.Context) (int, error) {
			cancel()
			return 0, &HTTPError{StatusCode: 503}
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "during backoff")
	})
}

func TestBackoff(t *testing.T) {
	cfg := NewRetryConfig(
		WithInitialBackoff(time.Second),
		WithMaxBackoff(5*time.Second),
		WithBackoffFactor(2),
	)
	assert.Equal(t, time.Second, cfg.Backoff(1))
	assert.Equal(t, 2*time.Second, cfg.Backoff(2))
	assert.Equal(t, 4*time.Second, cfg.Backoff(3))
	assert.Equal(t, 5*time.Second, cfg.Backoff(4))
	assert.Equal(t, 5*time.Second, cfg.Backoff(40))

	flat := RetryConfig{InitialBackoff: time.Second}
	assert.Equal(t, time.Second, flat.Backoff(3))
}

func TestJittered(t *testing.T) {
	assert.Equal(t, time.Second, jittered(time.Second, 0))
	for i := 0; i < 100; i++ {
		d := jittered(time.Second, 0.1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}
