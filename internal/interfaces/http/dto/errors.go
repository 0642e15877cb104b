package dto

import (
	"net/http"

	"github.com/tradein/backend/internal/domain/valuation"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation and input error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodePayloadTooLarge is used when the request body exceeds the limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Wizard error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for the current wizard state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeStepMismatch is used when the submitted step is not the current step
	ErrCodeStepMismatch = "ERR_STEP_MISMATCH"
	// ErrCodeReportNotReady is used when the report is requested before the last step
	ErrCodeReportNotReady = "ERR_REPORT_NOT_READY"
)

// Valuation provider error codes
const (
	// ErrCodeConfiguration is used when the provider credential or endpoint is missing
	ErrCodeConfiguration = "ERR_CONFIGURATION"
	// ErrCodeUpstream is used when the provider failed or answered with an error
	ErrCodeUpstream = "ERR_UPSTREAM"
	// ErrCodePartialData is used when the provider response lacks an expected value
	ErrCodePartialData = "ERR_PARTIAL_DATA"
	// ErrCodeNoMatch is used when a lookup matched no vehicle
	ErrCodeNoMatch = "ERR_NO_MATCH"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:   http.StatusUnprocessableEntity,
	ErrCodeStepMismatch:   http.StatusConflict,
	ErrCodeReportNotReady: http.StatusConflict,

	ErrCodeConfiguration: http.StatusInternalServerError,
	ErrCodeUpstream:      http.StatusBadGateway,
	ErrCodePartialData:   http.StatusBadGateway,
	ErrCodeNoMatch:       http.StatusNotFound,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to standardized API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"STEP_MISMATCH":        ErrCodeStepMismatch,
	"REPORT_NOT_READY":     ErrCodeReportNotReady,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"INVALID_INPUT":        ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// valuationKindCodes maps valuation error kinds to API codes
var valuationKindCodes = map[valuation.ErrorKind]string{
	valuation.KindValidation:    ErrCodeValidation,
	valuation.KindConfiguration: ErrCodeConfiguration,
	valuation.KindUpstream:      ErrCodeUpstream,
	valuation.KindPartialData:   ErrCodePartialData,
	valuation.KindNoMatch:       ErrCodeNoMatch,
}

// ValuationErrorCode returns the API code for a valuation error kind
func ValuationErrorCode(kind valuation.ErrorKind) string {
	if code, ok := valuationKindCodes[kind]; ok {
		return code
	}
	return ErrCodeUnknown
}
