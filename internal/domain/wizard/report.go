package wizard

import (
	"github.com/shopspring/decimal"
)

// Mileage status labels
const (
	MileageBelowAverage = "Below Average"
	MileageAboveAverage = "Above Average"
)

// ReportConfig holds the rates applied when building a report
type ReportConfig struct {
	// TaxRate is the trade-in sales tax credit rate applied to the base value
	TaxRate decimal.Decimal
	// RangeFloor is the fraction of the adjusted value used as the estimate minimum
	RangeFloor decimal.Decimal
}

// DefaultReportConfig returns the standard rates: 13% tax, 90% estimate floor
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		TaxRate:    decimal.RequireFromString("0.13"),
		RangeFloor: decimal.RequireFromString("0.9"),
	}
}

// EstimateRange is the estimated trade-in range
type EstimateRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Report is the valuation summary of a completed wizard
type Report struct {
	Vehicle         VehicleData
	Estimate        EstimateRange
	BlackBookValue  decimal.Decimal
	TaxSavings      decimal.Decimal
	TotalBenefit    decimal.Decimal
	MarketValue     decimal.NullDecimal
	PriceAdjustment decimal.Decimal
	MileageStatus   string

	Specs      *SpecsData
	Financing  *FinancingData
	Damage     *DamageData
	Additional *AdditionalData
	Contact    *ContactData
}

// BuildReport computes the report figures. The state must be at the report step.
func BuildReport(s State, cfg ReportConfig) (Report, error) {
	if !s.IsComplete() {
		return Report{}, ErrReportNotReady
	}
	if s.Vehicle == nil {
		return Report{}, ErrVehicleMissing
	}
	v := *s.Vehicle

	base := v.BasePrice
	adjusted := base.Add(v.PriceAdjustment)
	taxSavings := base.Mul(cfg.TaxRate).Round(2)

	status := MileageAboveAverage
	if v.Desirable {
		status = MileageBelowAverage
	}

	return Report{
		Vehicle: v,
		Estimate: EstimateRange{
			Min: adjusted.Mul(cfg.RangeFloor).Round(2),
			Max: adjusted,
		},
		BlackBookValue:  base,
		TaxSavings:      taxSavings,
		TotalBenefit:    base.Add(taxSavings),
		MarketValue:     v.MarketValue,
		PriceAdjustment: v.PriceAdjustment,
		MileageStatus:   status,
		Specs:           s.Specs,
		Financing:       s.Financing,
		Damage:          s.Damage,
		Additional:      s.Additional,
		Contact:         s.Contact,
	}, nil
}
