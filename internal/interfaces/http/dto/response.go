package dto

// ErrorResponse is the uniform error body of every endpoint
type ErrorResponse struct {
	Error     string        `json:"error"`
	Code      string        `json:"code"`
	RequestID string        `json:"request_id"`
	Details   []FieldDetail `json:"details,omitempty"`
}

// FieldDetail describes one invalid request field
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error body, normalizing domain codes
func NewErrorResponse(code, message, requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     message,
		Code:      NormalizeErrorCode(code),
		RequestID: requestID,
	}
}

// NewValidationErrorResponse creates a validation error body with field details
func NewValidationErrorResponse(message, requestID string, details []FieldDetail) ErrorResponse {
	return ErrorResponse{
		Error:     message,
		Code:      ErrCodeValidation,
		RequestID: requestID,
		Details:   details,
	}
}

// HealthResponse is the liveness probe body
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
