package openaicompat

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy kinds that have no associated data beyond
// the kind itself. Transport and Api errors carry extra fields and are
// defined as their own types below.
var (
	// ErrNoAPIKey reports that a provider call requires an API key and none
	// was supplied.
	ErrNoAPIKey = errors.New("openaicompat: no API key configured")

	// ErrInvalidResponse reports a structurally unparseable chunk or
	// unexpected SSE framing.
	ErrInvalidResponse = errors.New("openaicompat: invalid response")

	// ErrContextOverflow classifies an error as a context-window overflow,
	// detected via the classifier in contextoverflow.go. Use errors.Is
	// against this sentinel rather than inspecting APIError.ContextOverflow
	// directly.
	ErrContextOverflow = errors.New("openaicompat: context overflow")
)

// TransportError wraps a network-level failure that happened before or
// during streaming, as opposed to a non-2xx response the provider returned
// deliberately (see APIError).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("openaicompat: transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports a non-success HTTP status with the provider's response
// body attached. ContextOverflow is set when the status/body combination
// matches the classifier in contextoverflow.go, so callers can branch with
// errors.Is(err, ErrContextOverflow) without re-parsing the message.
type APIError struct {
	StatusCode      int
	Message         string
	ContextOverflow bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openaicompat: api error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrContextOverflow && e.ContextOverflow
}
