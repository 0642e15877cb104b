package valuation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxMileage bounds accepted odometer readings
const MaxMileage = 2_000_000

// Default policy parameters
const (
	DefaultRatePerThousand       = 100
	DefaultFlatAmount            = 750
	DefaultAverageMileage  int64 = 100000
)

// Policy names accepted by NewMileagePolicy
const (
	PolicyLinear = "linear"
	PolicyFlat   = "flat"
)

// MileageAdjustment is the price delta for a vehicle's mileage
type MileageAdjustment struct {
	Amount       decimal.Decimal
	Desirable    bool
	BaseMiles    int64
	CurrentMiles int64
}

// MileagePolicy computes the price adjustment for actual mileage against an average baseline
type MileagePolicy interface {
	Name() string
	Adjust(averageMiles, actualMiles int64) decimal.Decimal
}

// LinearPolicy adjusts by RatePerThousand for every 1000 miles below (or above) average
type LinearPolicy struct {
	RatePerThousand decimal.Decimal
}

// Name returns the policy name
func (p LinearPolicy) Name() string { return PolicyLinear }

// Adjust returns round((average - actual) / 1000 * rate), with halves
// rounded toward positive infinity so -0.5 becomes 0 and 0.5 becomes 1.
func (p LinearPolicy) Adjust(averageMiles, actualMiles int64) decimal.Decimal {
	diff := decimal.NewFromInt(averageMiles - actualMiles)
	return roundHalfUp(diff.Div(decimal.NewFromInt(1000)).Mul(p.RatePerThousand))
}

var half = decimal.New(5, -1)

func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

// FlatPolicy adds Amount below the baseline and subtracts it otherwise
type FlatPolicy struct {
	Amount decimal.Decimal
}

// Name returns the policy name
func (p FlatPolicy) Name() string { return PolicyFlat }

// Adjust returns +Amount when actual is below average, else -Amount
func (p FlatPolicy) Adjust(averageMiles, actualMiles int64) decimal.Decimal {
	if actualMiles < averageMiles {
		return p.Amount
	}
	return p.Amount.Neg()
}

// NewMileagePolicy builds a policy by name
func NewMileagePolicy(name string, ratePerThousand, flatAmount float64) (MileagePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyLinear:
		return LinearPolicy{RatePerThousand: decimal.NewFromFloat(ratePerThousand)}, nil
	case PolicyFlat:
		return FlatPolicy{Amount: decimal.NewFromFloat(flatAmount)}, nil
	default:
		return nil, fmt.Errorf("unknown mileage policy %q", name)
	}
}

// ComputeMileageAdjustment applies policy to actual mileage against the average baseline
func ComputeMileageAdjustment(policy MileagePolicy, averageMiles, actualMiles int64) MileageAdjustment {
	return MileageAdjustment{
		Amount:       policy.Adjust(averageMiles, actualMiles),
		Desirable:    actualMiles < averageMiles,
		BaseMiles:    averageMiles,
		CurrentMiles: actualMiles,
	}
}

// ParseMileage parses an odometer reading
func ParseMileage(op, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, NewValidationError(op, "Mileage is required")
	}
	miles, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewValidationError(op, "Mileage must be a whole number")
	}
	if err := ValidateMileage(op, miles); err != nil {
		return 0, err
	}
	return miles, nil
}

// ValidateMileage checks an odometer reading is within range
func ValidateMileage(op string, miles int64) error {
	if miles < 0 {
		return NewValidationError(op, "Mileage cannot be negative")
	}
	if miles > MaxMileage {
		return NewValidationError(op, "Mileage is out of range")
	}
	return nil
}
