// Package errorhandling provides concrete ErrorHandling policies —
// queue.ErrorHandling implementations a queue or a message can plug in to
// govern CanRetry/RetryInterval. Adapted from the teacher's
// internal/reliability retry policies, reshaped from the "attempt,err ->
// shouldRetry,delay" adapter-function contract into the core's
// "retryCount -> canRetry / interval" contract.
package errorhandling

import (
	"math/rand"
	"time"
)

// Fixed retries up to MaxRetries times with a constant interval.
type Fixed struct {
	MaxRetries int
	Interval   time.Duration
}

func NewFixed(maxRetries int, interval time.Duration) *Fixed {
	return &Fixed{MaxRetries: maxRetries, Interval: interval}
}

func (f *Fixed) CanRetry(retryCount int) bool {
	return retryCount < f.MaxRetries
}

func (f *Fixed) RetryInterval(retryCount int) time.Duration {
	return f.Interval
}

// ExponentialBackoff doubles (times Multiplier) the interval on every
// retry, capped at MaxInterval, with up to ±Jitter fractional jitter —
// grounded on the teacher's ExponentialBackoff in internal/reliability.
type ExponentialBackoff struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
	rand            *rand.Rand
}

func NewExponentialBackoff(maxRetries int, initial, max time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		MaxRetries:      maxRetries,
		InitialInterval: initial,
		MaxInterval:     max,
		Multiplier:      2.0,
		Jitter:          0.15,
		rand:            rand.New(rand.NewSource(1)),
	}
}

func (e *ExponentialBackoff) CanRetry(retryCount int) bool {
	return retryCount < e.MaxRetries
}

func (e *ExponentialBackoff) RetryInterval(retryCount int) time.Duration {
	interval := float64(e.InitialInterval)
	for i := 0; i < retryCount; i++ {
		interval *= e.Multiplier
	}
	if interval > float64(e.MaxInterval) {
		interval = float64(e.MaxInterval)
	}
	if e.Jitter > 0 {
		delta := interval * e.Jitter
		interval += (e.rand.Float64()*2 - 1) * delta
	}
	if interval < 0 {
		interval = 0
	}
	return time.Duration(interval)
}

// Never never permits a retry; a single failed attempt suspends the
// message immediately.
type Never struct{}

func (Never) CanRetry(int) bool                     { return false }
func (Never) RetryInterval(int) time.Duration { return 0 }
