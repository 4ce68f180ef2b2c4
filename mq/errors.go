package mq

import (
	"errors"
	"fmt"
)

// ErrNoReservation is returned by touch/release/delete helpers when the
// message carries no reservation id. The server would reject the call anyway;
// failing locally keeps a stale or missing token a logic error rather than a
// round trip.
var ErrNoReservation = errors.New("message has no active reservation id")

// APIError is any non-200, non-503 answer from the service. It is never
// retried.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string // raw error body from the server
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// OverloadedError is returned once the retry budget for HTTP 503 responses is
// exhausted. Attempts counts every transport invocation made.
type OverloadedError struct {
	Method   string
	Path     string
	Attempts int
	Body     string
}

func (e *OverloadedError) Error() string {
	return fmt.Sprintf("%s %s: service overloaded after %d attempts: %s", e.Method, e.Path, e.Attempts, e.Body)
}

// TransportError wraps a connection-level failure (DNS, refused, reset,
// timeout). These are surfaced immediately; only 503 responses are retried.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
