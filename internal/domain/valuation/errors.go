package valuation

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a valuation failure
type ErrorKind string

const (
	// KindValidation marks bad caller input. Never sent upstream.
	KindValidation ErrorKind = "VALIDATION"
	// KindConfiguration marks a missing provider credential or endpoint
	KindConfiguration ErrorKind = "CONFIGURATION"
	// KindUpstream marks a non-2xx, unreachable or unparseable provider response
	KindUpstream ErrorKind = "UPSTREAM"
	// KindPartialData marks a provider response missing an expected numeric field
	KindPartialData ErrorKind = "PARTIAL_DATA"
	// KindNoMatch marks a well-formed lookup that matched nothing
	KindNoMatch ErrorKind = "NO_MATCH"
)

// Error is the error type returned by every valuation operation
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	// StatusCode is the provider HTTP status, 0 when no response was received
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind. Partial data is a kind of upstream failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindUpstream && e.Kind == KindPartialData
}

// Sentinels for errors.Is
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrUpstream      = &Error{Kind: KindUpstream}
	ErrPartialData   = &Error{Kind: KindPartialData}
	ErrNoMatch       = &Error{Kind: KindNoMatch}
)

// NewValidationError creates a validation error
func NewValidationError(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(op, message string) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: message}
}

// NewUpstreamError creates an upstream error, keeping the provider status when one was received
func NewUpstreamError(op string, statusCode int, err error) *Error {
	msg := "valuation provider request failed"
	if statusCode > 0 {
		msg = fmt.Sprintf("valuation provider returned HTTP %d", statusCode)
	}
	return &Error{Kind: KindUpstream, Op: op, Message: msg, StatusCode: statusCode, Err: err}
}

// NewPartialDataError reports a required numeric field absent from the provider response
func NewPartialDataError(op, field string) *Error {
	return &Error{
		Kind:    KindPartialData,
		Op:      op,
		Message: fmt.Sprintf("valuation provider response is missing %s", field),
	}
}

// NewNoMatchError creates a no-match error
func NewNoMatchError(op, message string) *Error {
	return &Error{Kind: KindNoMatch, Op: op, Message: message}
}

// HTTPStatus maps an error to the status the gateway answers with
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConfiguration:
		return http.StatusInternalServerError
	case KindNoMatch:
		return http.StatusNotFound
	case KindUpstream:
		if e.StatusCode >= http.StatusBadRequest && e.StatusCode <= 599 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case KindPartialData:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API clients.
// Provider response bodies and transport details stay in the logs.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "An unexpected error occurred"
	}
	switch e.Kind {
	case KindValidation, KindNoMatch, KindPartialData:
		return e.Message
	case KindConfiguration:
		return "Valuation provider is not configured"
	case KindUpstream:
		if e.StatusCode > 0 {
			return fmt.Sprintf("Vehicle lookup failed: %d", e.StatusCode)
		}
		return "Failed to reach valuation provider"
	default:
		return e.Message
	}
}
