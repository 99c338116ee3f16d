package renderer

import (
	"errors"
	"fmt"
)

// Kind classifies a failed render call.
type Kind string

// Render failure kinds.
const (
	// KindTimeout means the call ran past its deadline.
	KindTimeout Kind = "timeout"
	// KindUnavailable means the service could not be reached or the circuit is open.
	KindUnavailable Kind = "unavailable"
	// KindInvalidURL means the service rejected the URL (400/422).
	KindInvalidURL Kind = "invalid_url"
	// KindServiceError means the service failed (5xx, 429 or another unexpected status).
	KindServiceError Kind = "service_error"
	// KindMalformed means a 200 response whose body could not be interpreted.
	KindMalformed Kind = "malformed_response"
)

// Error is returned by Render for every failure mode.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("render %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("render %s (status %d)", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("render %s: %v", e.Kind, e.Err)
	default:
		return "render " + string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind, true
	}
	return "", false
}

// StatusCodeOf returns the service status code carried by err, or 0.
func StatusCodeOf(err error) int {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.StatusCode
	}
	return 0
}

// countsAgainstCircuit reports whether err indicates the service itself is unhealthy.
func countsAgainstCircuit(err error) bool {
	kind, ok := KindOf(err)
	return ok && (kind == KindUnavailable || kind == KindServiceError)
}

// failsTrial reports whether err fails the half-open trial. A service that
// cannot answer within the timeout is not yet healthy.
func failsTrial(err error) bool {
	kind, ok := KindOf(err)
	return countsAgainstCircuit(err) || (ok && kind == KindTimeout)
}
