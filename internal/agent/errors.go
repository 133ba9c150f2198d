package agent

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrFatal is matched by every error that must abort the benchmark.
var ErrFatal = errors.New("fatal")

// ErrMalformedGatewayInfo is returned when the gateway answers 200 with a body
// that does not carry a usable port.
var ErrMalformedGatewayInfo = fmt.Errorf("%w: malformed gateway info", ErrFatal)

// Phase names the two requests an agent performs.
type Phase string

const (
	PhaseGateway Phase = "gateway"
	PhaseRequest Phase = "request"
)

// Method returns the HTTP method used in the phase.
func (p Phase) Method() string {
	if p == PhaseGateway {
		return http.MethodGet
	}
	return http.MethodPost
}

// StatusError reports a non-200 answer. It is never retried.
type StatusError struct {
	Phase Phase
	URL   string
	Code  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fatal: HTTP %s rejected: %d (%s)", e.Phase.Method(), e.Code, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrFatal
}

// RetryError is returned when a bounded RetryPolicy runs out of attempts.
type RetryError struct {
	Phase    Phase
	URL      string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s %s: gave up after %d attempts: %v", e.Phase.Method(), e.URL, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
