package agent

import "time"

// RetryPolicy decides how transport failures are retried.
// The zero value retries forever without pausing.
type RetryPolicy struct {
	// MaxAttempts bounds the number of tries. 0 means unbounded.
	MaxAttempts int
	// Backoff returns the pause after the given failed attempt (1-based).
	// nil means no pause.
	Backoff func(attempt int) time.Duration
}

// Unbounded is the tight retry loop used by the benchmark by default.
func Unbounded() RetryPolicy {
	return RetryPolicy{}
}

func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}

// ConstantBackoff pauses d after every failure.
func ConstantBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles base after each failure, capped at max.
// Sequence: base, 2*base, 4*base, ... max.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt <= 0 || base <= 0 {
			return 0
		}
		if attempt > 32 {
			return max
		}
		d := base << uint(attempt-1)
		if d > max || d <= 0 {
			d = max
		}
		return d
	}
}
