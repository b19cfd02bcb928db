package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter returns a token bucket that holds cfg.Burst frames and
// refills the whole bucket every cfg.RefillInterval.
func newRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	burst := max(cfg.Burst, 1)
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}
	return rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst)
}
