package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig controls how a collaborator call is retried.
type RetryConfig struct {
	// MaxAttempts counts every call, the first included. Values below 1
	// mean a single call.
	MaxAttempts int

	// InitialBackoff is the wait after the first failed call.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait. Zero means uncapped.
	MaxBackoff time.Duration

	// BackoffFactor grows the wait after each further failure.
	BackoffFactor float64

	// Jitter spreads each wait by up to ±Jitter of its length.
	Jitter float64

	// Retryable overrides IsRetryable.
	Retryable func(error) bool

	// OnRetry is called before each backoff wait.
	OnRetry func(op string, attempt int, err error, wait time.Duration)
}

// DefaultRetry is the standard retry configuration.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry makes every call a single attempt.
var NoRetry = RetryConfig{
	MaxAttempts: 1,
}

// Backoff returns the un-jittered wait that follows failed attempt n
// (1-based).
func (c RetryConfig) Backoff(n int) time.Duration {
	factor := max(c.BackoffFactor, 1)
	wait := float64(c.InitialBackoff)
	for i := 1; i < n; i++ {
		wait *= factor
		if c.MaxBackoff > 0 && wait >= float64(c.MaxBackoff) {
			return c.MaxBackoff
		}
	}
	if c.MaxBackoff > 0 && time.Duration(wait) > c.MaxBackoff {
		return c.MaxBackoff
	}
	return time.Duration(wait)
}

// Do calls fn until it succeeds, fails with a non-retryable error, runs out
// of attempts or ctx ends. op names the call in errors and in OnRetry.
//
// A returned error is always a *CategorizedError whose Retries is the number
// of calls made.
//
// Example:
//
//	path, err := errors.Do(ctx, cfg, "download", func(ctx context.Context) (string, error) {
//		return downloader.Download(ctx, job)
//	})
func Do[T any](ctx context.Context, cfg RetryConfig, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	limit := max(cfg.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, giveUp(err, CategoryPermanent, attempt-1, op, "context cancelled")
		}

		v, err := fn(ctx)
		switch {
		case err == nil:
			return v, nil
		case !retryable(err):
			return zero, giveUp(err, Categorize(err), attempt, op, "")
		case attempt >= limit:
			return zero, giveUp(err, Categorize(err), attempt, op, "max retries exceeded")
		}

		wait := jittered(cfg.Backoff(attempt), cfg.Jitter)
		if cfg.OnRetry != nil {
			cfg.OnRetry(op, attempt, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, giveUp(ctx.Err(), CategoryPermanent, attempt, op, "context cancelled during backoff")
		case <-timer.C:
		}
	}
}

func giveUp(err error, cat Category, calls int, op, reason string) *CategorizedError {
	desc := op
	switch {
	case desc == "":
		desc = reason
	case reason != "":
		desc += ": " + reason
	}
	return &CategorizedError{Err: err, Category: cat, Retries: calls, Context: desc}
}

// jittered spreads base by up to ±jitter of its length.
func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	spread := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + spread)
}

// RetryOption adjusts a RetryConfig.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets MaxAttempts.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxAttempts = n }
}

// WithInitialBackoff sets InitialBackoff.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.InitialBackoff = d }
}

// WithMaxBackoff sets MaxBackoff.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxBackoff = d }
}

// WithBackoffFactor sets BackoffFactor.
func WithBackoffFactor(f float64) RetryOption {
	return func(cfg *RetryConfig) { cfg.BackoffFactor = f }
}

// WithJitter sets Jitter.
func WithJitter(j float64) RetryOption {
	return func(cfg *RetryConfig) { cfg.Jitter = j }
}

// NewRetryConfig starts from DefaultRetry and applies opts.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
