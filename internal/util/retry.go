// Package util holds small helpers shared across the engine's network
// paths.
package util

import (
	"math/rand/v2"
	"time"
)

// CalculateBackoff returns the delay before retry number attempt. The
// base delay doubles each attempt and is capped at 30 seconds; random
// jitter of up to 25% either way spreads retries out. The pre-jitter
// delay is monotonically non-decreasing in attempt.
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	// Cap the shift to avoid overflow
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2)) - backoff/4
	return backoff + jitter
}
