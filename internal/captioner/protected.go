package captioner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("caption circuit breaker open")

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

type ProtectedConfig struct {
	Timeout          time.Duration // hard deadline per caption call
	FailureThreshold int           // consecutive failures that open the circuit
	Cooldown         time.Duration // time spent open before a trial call
	HalfOpenMaxCalls int           // concurrent trial calls while half-open
}

// Metrics receives one observation per call. *observability.Prom satisfies it.
type Metrics interface {
	ObserveCaption(result string, d time.Duration)
}

// Protected bounds a Captioner with a timeout and a circuit breaker and
// wraps every failure in ErrUpstream.
type Protected struct {
	inner   Captioner
	cfg     ProtectedConfig
	metrics Metrics
	now     func() time.Time

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtected(inner Captioner, cfg ProtectedConfig, metrics Metrics) *Protected {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &Protected{
		inner:   inner,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
		state:   stateClosed,
	}
}

func (p *Protected) Caption(ctx context.Context, image []byte) (string, error) {
	start := p.now()

	if !p.allowRequest() {
		p.observe("circuit_open", start)
		return "", fmt.Errorf("%w: %w", ErrUpstream, ErrCircuitOpen)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	text, err := p.inner.Caption(callCtx, image)

	// A caller that went away says nothing about provider health.
	if err != nil && ctx.Err() != nil {
		p.release()
		p.observe("canceled", start)
		return "", fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
	}

	p.afterRequest(err)

	switch {
	case err == nil:
		p.observe("ok", start)
		return text, nil
	case errors.Is(err, context.DeadlineExceeded):
		p.observe("timeout", start)
	default:
		p.observe("error", start)
	}

	if errors.Is(err, ErrUpstream) {
		return "", err
	}
	return "", fmt.Errorf("%w: %w", ErrUpstream, err)
}

// State reports the breaker position, for tests and diagnostics.
func (p *Protected) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.state)
}

func (p *Protected) observe(result string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveCaption(result, p.now().Sub(start))
	}
}

func (p *Protected) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateOpen:
		if p.now().Sub(p.openedAt) < p.cfg.Cooldown {
			return false
		}
		p.state = stateHalfOpen
		p.halfOpenInFlight = 1
		return true
	case stateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *Protected) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}
}

func (p *Protected) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil {
		p.consecutiveFailures = 0
		p.state = stateClosed
		return
	}

	p.consecutiveFailures++

	if p.state == stateHalfOpen || p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = stateOpen
		p.openedAt = p.now()
	}
}
