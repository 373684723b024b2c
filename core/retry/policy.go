package retry

import "time"

// Policy bounds how often and how slowly an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `json:"max_attempts"`
	// BaseDelay is the delay before the second attempt; it doubles per attempt.
	BaseDelay time.Duration `json:"base_delay"`
	// MaxDelay caps any single delay, including Retry-After hints.
	MaxDelay time.Duration `json:"max_delay"`
	// Jitter is the largest random fraction added on top of a delay (0.1 = 10%).
	Jitter float64 `json:"jitter"`
}

// DefaultPolicy returns four attempts with 1s, 2s, 4s backoff and 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.1,
	}
}

// Delay returns the sleep before attempt+1, given that attempt (1-based) just failed.
// r is a random number in [0, 1) scaling the jitter.
func (p Policy) Delay(attempt int, retryAfter time.Duration, r float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.backoff(attempt)
	if retryAfter > d {
		d = retryAfter
	}

	if p.Jitter > 0 && r > 0 {
		d += time.Duration(float64(d) * p.Jitter * r)
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Bounds returns the smallest and largest delay Delay can produce for attempt.
func (p Policy) Bounds(attempt int, retryAfter time.Duration) (lo, hi time.Duration) {
	return p.Delay(attempt, retryAfter, 0), p.Delay(attempt, retryAfter, 1)
}

func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
		if d <= 0 {
			// overflow
			return p.MaxDelay
		}
	}
	return d
}
