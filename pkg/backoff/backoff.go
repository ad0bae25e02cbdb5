package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Exponential returns base * 2^attempt for a zero-indexed attempt,
// saturating instead of overflowing.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 0 {
		return 0
	}
	d := float64(base) * math.Pow(2, float64(attempt))
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// ExponentialJitter is the capped, one-indexed variant with +/- 20% jitter.
func ExponentialJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	d := Exponential(base, attempt-1)
	if max > 0 {
		d = min(d, max)
	}

	j := time.Duration(float64(d) * 0.2)
	if j <= 0 {
		return d
	}
	return d - j + rand.N(2*j)
}
