package wizard

import (
	"fmt"
	"strings"

	"github.com/tradein/backend/internal/domain/shared"
)

// Wizard errors
var (
	ErrUnknownStep     = shared.NewDomainError("NOT_FOUND", "Unknown wizard step")
	ErrStepMismatch    = shared.NewDomainError("STEP_MISMATCH", "Submitted step is not the current wizard step")
	ErrAtFirstStep     = shared.NewDomainError("INVALID_STATE", "Cannot go back from the first step")
	ErrWizardComplete  = shared.NewDomainError("INVALID_STATE", "Wizard is already complete")
	ErrReportNotReady  = shared.NewDomainError("REPORT_NOT_READY", "Report is available once every step is complete")
	ErrVehicleMissing  = shared.NewDomainError("INVALID_STATE", "Vehicle step has not been completed")
	ErrSessionNotFound = shared.NewDomainError("NOT_FOUND", "Wizard session not found")
	ErrSessionConflict = shared.NewDomainError("CONCURRENCY_CONFLICT", "Wizard session was modified by another request")
)

// FieldError describes one invalid field of a step output
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports a step output that failed its required-field checks.
// The wizard does not transition when it is returned.
type ValidationError struct {
	Step   Step
	Fields []FieldError
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s step is invalid", e.Step)
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%s step is invalid: %s", e.Step, strings.Join(msgs, "; "))
}

// NewFieldError reports a single invalid field of a step
func NewFieldError(step Step, field, message string) *ValidationError {
	return &ValidationError{Step: step, Fields: []FieldError{{Field: field, Message: message}}}
}
