package valuation

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PricingResult is the canonical pricing for one vehicle configuration.
// MarketValue is optional; the provider omits it for some configurations.
type PricingResult struct {
	BasePrice    decimal.Decimal
	MarketValue  decimal.NullDecimal
	TradeInValue decimal.Decimal
}

// VehicleRecord is provider vehicle data after field-variant mapping.
// Every numeric field is optional so "absent" stays distinct from zero.
type VehicleRecord struct {
	Gid            string
	Year           int
	Make           string
	Model          string
	Style          string
	BasePrice      decimal.NullDecimal
	MarketValue    decimal.NullDecimal
	TradeInValue   decimal.NullDecimal
	AverageMileage decimal.NullDecimal
	// Raw is the provider payload as received
	Raw json.RawMessage
}

// Pricing derives the canonical pricing. A record without any base price
// variant is reported as partial data, never defaulted to zero.
func (r VehicleRecord) Pricing() (PricingResult, error) {
	if !r.BasePrice.Valid {
		return PricingResult{}, NewPartialDataError("vehicle pricing", "basePrice")
	}
	trade := r.BasePrice.Decimal
	if r.TradeInValue.Valid {
		trade = r.TradeInValue.Decimal
	}
	return PricingResult{
		BasePrice:    r.BasePrice.Decimal,
		MarketValue:  r.MarketValue,
		TradeInValue: trade,
	}, nil
}

// AverageMileageOr returns the provider's average mileage, or fallback when absent or non-positive
func (r VehicleRecord) AverageMileageOr(fallback int64) int64 {
	if r.AverageMileage.Valid && r.AverageMileage.Decimal.IsPositive() {
		return r.AverageMileage.Decimal.Round(0).IntPart()
	}
	return fallback
}

// ValuationQuote is the combined base lookup and mileage adjustment for one vehicle.
// It lives only as long as the wizard session that requested it.
type ValuationQuote struct {
	Pricing    PricingResult
	Adjustment MileageAdjustment
	Raw        json.RawMessage
}

// AdjustedValue is the base price plus the mileage adjustment
func (q ValuationQuote) AdjustedValue() decimal.Decimal {
	return q.Pricing.BasePrice.Add(q.Adjustment.Amount)
}
