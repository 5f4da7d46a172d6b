package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior. The default policy waits a fixed delay
// between attempts; a Multiplier above 1 turns it into exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 10.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 30s.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: InitialBackoff.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 1.0 (fixed delay).
	Multiplier float64

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = no jitter, 0.5 = ±50%). Default: 0.
	JitterFraction float64

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt number that
	// just failed, the upcoming delay and the error.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns the fixed-delay policy used for upstream reads:
// 10 attempts, 30 seconds apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    10,
		InitialBackoff: 30 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     1.0,
		JitterFraction: 0,
	}
}

// DoVal executes fn with retry logic according to cfg and returns the value
// of the first successful call. It retries only on errors deemed transient
// (via ShouldRetry or IsTransient). Context cancellation stops retries
// immediately. The returned attempts count includes the final call.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, int, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, attempt + 1, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, attempt + 1, lastErr
		}

		if !shouldRetry(lastErr) {
			return zero, attempt + 1, lastErr
		}

		// Don't sleep after the last attempt.
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		delay := computeBackoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, attempt + 1, lastErr
		case <-timer.C:
		}
	}

	return zero, cfg.MaxAttempts, lastErr
}

// IsZero reports whether no retry policy was set at all.
func (c RetryConfig) IsZero() bool {
	return c.MaxAttempts == 0 && c.InitialBackoff == 0 && c.MaxBackoff == 0 &&
		c.Multiplier == 0 && c.JitterFraction == 0
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.InitialBackoff < 0 {
		cfg.InitialBackoff = 0
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}

	// Apply jitter: ±JitterFraction of delay.
	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		jitter := (rand.Float64()*2 - 1) * jitterRange // [-jitterRange, +jitterRange]
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each failed attempt as
// "[attempt/max]" together with the given fields and the upcoming delay.
func RetryLogger(maxAttempts int, fields ...zap.Field) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		all := make([]zap.Field, 0, len(fields)+4)
		all = append(all, fields...)
		all = append(all,
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		zap.L().Warn("request failed, retrying", all...)
	}
}
