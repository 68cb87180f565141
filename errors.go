package rayleigh

import (
	"fmt"
	"time"
)

// The client reports failures through a closed set of error types, one per
// failure class, so that a caller-supplied retry or alerting policy can branch
// on them with errors.As without string matching. No error is ever retried or
// swallowed inside the client.

// DecodingError reports a credential string that could not be decoded into a
// (client id, access token) pair.
type DecodingError struct {
	Reason string
	Err    error
}

func (e *DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode credentials: %s: %v", e.Reason, e.Err)
	}
	return "decode credentials: " + e.Reason
}

func (e *DecodingError) Unwrap() error { return e.Err }

// ConfigurationError reports an unusable client configuration, such as empty
// credentials or a malformed endpoint URL. It is returned at construction
// time, never from a query.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "client configuration: " + e.Reason }

// ValidationError reports a selection or date range that is invalid before
// any network activity: an empty device or sensor set, a malformed device id,
// or a reversed date range.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid query: " + e.Reason }

// apiError carries the response details shared by every error kind derived
// from an API status code.
type apiError struct {
	// StatusCode is the HTTP status that produced the error, or 0 when the
	// error was derived from the response content rather than its status.
	StatusCode int

	// RequestID is the X-Request-Id that accompanied the failed request,
	// useful when raising the issue with the vendor.
	RequestID string

	Message string
}

func (e *apiError) text() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// AuthenticationError reports credentials the API rejected (HTTP 401 or 403).
type AuthenticationError struct {
	apiError
}

func (e *AuthenticationError) Error() string { return "authentication rejected: " + e.text() }

// NotFoundError reports a device, sensor or data selection the API knows
// nothing about: an HTTP 404, a device missing from the account listing, or a
// data query that matched no readings at all.
type NotFoundError struct {
	apiError
}

func (e *NotFoundError) Error() string { return "not found: " + e.text() }

// RateLimitError reports request throttling (HTTP 429). RetryAfter carries
// the server-advertised backoff when the Retry-After header was present, and
// is zero otherwise. The client itself never waits or retries; that is the
// caller's policy.
type RateLimitError struct {
	apiError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return "rate limited: " + e.text() }

// ServerError reports an API status outside the mapped set: every 5xx, and
// any other status the client has no specific meaning for.
type ServerError struct {
	apiError
}

func (e *ServerError) Error() string { return "server error: " + e.text() }

// TransportError reports a request that never produced an API response:
// connection failures, timeouts and context cancellation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// ParsingError reports a response body the client could not interpret.
// Device and Sensor identify the offending series when the failure occurred
// inside the per-sensor data; both are empty for body-level failures.
type ParsingError struct {
	Device string
	Sensor string
	Reason string
	Err    error
}

func (e *ParsingError) Error() string {
	msg := "parse response: " + e.Reason
	if e.Device != "" {
		msg += fmt.Sprintf(" (device %s, sensor %s)", e.Device, e.Sensor)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParsingError) Unwrap() error { return e.Err }

var (
	_ error = (*DecodingError)(nil)
	_ error = (*ConfigurationError)(nil)
	_ error = (*ValidationError)(nil)
	_ error = (*AuthenticationError)(nil)
	_ error = (*NotFoundError)(nil)
	_ error = (*RateLimitError)(nil)
	_ error = (*ServerError)(nil)
	_ error = (*TransportError)(nil)
	_ error = (*ParsingError)(nil)
)
