// Package captioner turns image bytes into a short natural-language caption
// by calling a remote inference API.
package captioner

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUpstream marks every failure that originates at the captioning
// provider, including timeouts and an open circuit.
var ErrUpstream = errors.New("caption upstream failure")

type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// StatusError is a non-2xx reply from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("caption upstream returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// Retryable reports whether the provider may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}

// IsRetryable reports whether err is worth another attempt. Context
// cancellation and malformed replies never are.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}

	var ne net.Error
	return errors.As(err, &ne)
}
