package captioner

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const (
	DefaultAttempts = 3
	backoffBase     = 500 * time.Millisecond
	backoffCap      = 5 * time.Second
)

// Backoff returns the delay before retry number attempt (0-based):
// 500ms, 1s, 2s... capped at 5s, plus up to 250ms of jitter.
func Backoff(attempt int) time.Duration {
	delay := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	if delay > backoffCap {
		delay = backoffCap
	}

	return delay + time.Duration(rand.Intn(250))*time.Millisecond
}

type Retrying struct {
	inner    Captioner
	attempts int
	backoff  func(attempt int) time.Duration
}

type RetryOption func(*Retrying)

// WithBackoff replaces the delay schedule, mostly for tests.
func WithBackoff(fn func(attempt int) time.Duration) RetryOption {
	return func(r *Retrying) { r.backoff = fn }
}

func NewRetrying(inner Captioner, attempts int, opts ...RetryOption) *Retrying {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	r := &Retrying{inner: inner, attempts: attempts, backoff: Backoff}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Retrying) Caption(ctx context.Context, image []byte) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(r.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", lastErr
			case <-timer.C:
			}
		}

		text, err := r.inner.Caption(ctx, image)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	return "", lastErr
}
