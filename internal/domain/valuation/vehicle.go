package valuation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinModelYear is the oldest model year the provider catalogs
const MinModelYear = 1980

var gidPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// VehicleIdentity identifies one vehicle configuration.
// Gid must be resolved before a valuation can be requested.
type VehicleIdentity struct {
	Year  int
	Make  string
	Model string
	Trim  string
	Gid   string
}

// HasGid reports whether the identity is resolved to a provider configuration
func (v VehicleIdentity) HasGid() bool {
	return strings.TrimSpace(v.Gid) != ""
}

// VinCandidate is one trim-level match returned by a VIN decode
type VinCandidate struct {
	Gid   string
	Year  int
	Make  string
	Model string
	Style string
}

// Identity converts the candidate into a resolved vehicle identity
func (c VinCandidate) Identity() VehicleIdentity {
	return VehicleIdentity{
		Year:  c.Year,
		Make:  c.Make,
		Model: c.Model,
		Trim:  c.Style,
		Gid:   c.Gid,
	}
}

// CatalogOption is a value/label pair for a picker
type CatalogOption struct {
	Value string
	Label string
}

// TrimOption is a trim name with its provider gid.
// Gid is empty when the catalog lists a trim without a configuration identifier.
type TrimOption struct {
	Trim string
	Gid  string
}

// ManualLookup is a manual vehicle identification request
type ManualLookup struct {
	Year  int
	Make  string
	Model string
	Trim  string
}

// FormatMake title-cases a make name the way the provider catalog expects ("audi" -> "Audi")
func FormatMake(makeName string) string {
	makeName = strings.TrimSpace(makeName)
	if makeName == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(makeName))
}

// ParseYear parses and validates a model year
func ParseYear(op, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, NewValidationError(op, "Year is required")
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationError(op, "Year must be a number")
	}
	if err := ValidateYear(op, year); err != nil {
		return 0, err
	}
	return year, nil
}

// ValidateYear checks a model year is within the provider's catalog range
func ValidateYear(op string, year int) error {
	maxYear := time.Now().Year() + 1
	if year < MinModelYear || year > maxYear {
		return NewValidationError(op, "Year must be between "+strconv.Itoa(MinModelYear)+" and "+strconv.Itoa(maxYear))
	}
	return nil
}

// ValidateGid checks a gid is safe to place in a provider URL path
func ValidateGid(op, gid string) error {
	if strings.TrimSpace(gid) == "" {
		return NewValidationError(op, "GID is required")
	}
	if !gidPattern.MatchString(gid) {
		return NewValidationError(op, "GID is malformed")
	}
	return nil
}

// RequireText returns a validation error naming field when value is blank
func RequireText(op, field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", NewValidationError(op, field+" is required")
	}
	return value, nil
}
