package valuation

import (
	"regexp"
	"strings"
)

// VINLength is the length of a standard Vehicle Identification Number
const VINLength = 17

// vinPattern is the standard VIN charset: alphanumeric without I, O and Q
var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// NormalizeVIN trims and upper-cases a VIN, then validates it.
// A malformed VIN returns a validation error.
func NormalizeVIN(vin string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(vin))
	if !IsValidVIN(normalized) {
		return "", NewValidationError("decode vin", "Invalid VIN: must be 17 characters excluding I, O and Q")
	}
	return normalized, nil
}

// IsValidVIN reports whether vin is a well-formed upper-case VIN
func IsValidVIN(vin string) bool {
	return vinPattern.MatchString(vin)
}
