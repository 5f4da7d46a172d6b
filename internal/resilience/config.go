package resilience

import (
	"time"
)

// FromFetchConfig converts config values to a RetryConfig. A retry delay of
// zero retries immediately; a negative delay keeps the default. Other zero or
// negative values keep the defaults.
func FromFetchConfig(maxAttempts, retryDelaySecs, maxRetryDelaySecs int, multiplier, jitterFraction float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if retryDelaySecs >= 0 {
		cfg.InitialBackoff = time.Duration(retryDelaySecs) * time.Second
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if maxRetryDelaySecs > 0 && time.Duration(maxRetryDelaySecs)*time.Second > cfg.InitialBackoff {
		cfg.MaxBackoff = time.Duration(maxRetryDelaySecs) * time.Second
	}
	if multiplier > 0 {
		cfg.Multiplier = multiplier
	}
	if jitterFraction >= 0 {
		cfg.JitterFraction = jitterFraction
	}
	return cfg
}
