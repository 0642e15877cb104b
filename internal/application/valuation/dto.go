package valuation

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/tradein/backend/internal/domain/valuation"
)

// DecodeVINRequest is the body of a VIN decode
type DecodeVINRequest struct {
	VIN string `json:"vin" binding:"required"`
}

// ManualLookupRequest identifies a vehicle by catalog selection
type ManualLookupRequest struct {
	Year  int    `json:"year" binding:"required"`
	Make  string `json:"make" binding:"required,max=64"`
	Model string `json:"model" binding:"required,max=64"`
	Trim  string `json:"trim" binding:"max=128"`
}

// VinCandidateResponse is one trim-level VIN match
type VinCandidateResponse struct {
	Gid   string `json:"gid"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Style string `json:"style"`
}

// PricingResponse is the canonical pricing for a gid.
// MarketValue is null when the provider does not report one.
type PricingResponse struct {
	BasePrice    float64  `json:"basePrice"`
	MarketValue  *float64 `json:"marketValue"`
	TradeInValue float64  `json:"tradeInValue"`
}

// VehicleValueResponse is the pricing plus the provider payload it was read from
type VehicleValueResponse struct {
	TradeInValue float64         `json:"tradeInValue"`
	MarketValue  *float64        `json:"marketValue"`
	BasePrice    float64         `json:"basePrice"`
	RawResponse  json.RawMessage `json:"rawResponse"`
}

// MileageAdjustmentResponse is the price delta for an odometer reading
type MileageAdjustmentResponse struct {
	Adjustment   float64 `json:"adjustment"`
	Desirable    bool    `json:"desirable"`
	BaseMiles    int64   `json:"baseMiles"`
	CurrentMiles int64   `json:"currentMiles"`
}

// CatalogOptionResponse is a make picker entry
type CatalogOptionResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// TrimOptionResponse is a trim picker entry. Gid is empty when unresolved.
type TrimOptionResponse struct {
	Trim string `json:"trim"`
	Gid  string `json:"gid"`
}

// ToVinCandidateResponses converts domain candidates
func ToVinCandidateResponses(candidates []valuation.VinCandidate) []VinCandidateResponse {
	out := make([]VinCandidateResponse, len(candidates))
	for i, c := range candidates {
		out[i] = VinCandidateResponse{
			Gid:   c.Gid,
			Year:  c.Year,
			Make:  c.Make,
			Model: c.Model,
			Style: c.Style,
		}
	}
	return out
}

// ToPricingResponse converts a pricing result
func ToPricingResponse(p valuation.PricingResult) PricingResponse {
	return PricingResponse{
		BasePrice:    p.BasePrice.InexactFloat64(),
		MarketValue:  nullableFloat(p.MarketValue),
		TradeInValue: p.TradeInValue.InexactFloat64(),
	}
}

// ToMileageAdjustmentResponse converts a mileage adjustment
func ToMileageAdjustmentResponse(a valuation.MileageAdjustment) MileageAdjustmentResponse {
	return MileageAdjustmentResponse{
		Adjustment:   a.Amount.InexactFloat64(),
		Desirable:    a.Desirable,
		BaseMiles:    a.BaseMiles,
		CurrentMiles: a.CurrentMiles,
	}
}

// ToCatalogOptionResponses converts make picker entries
func ToCatalogOptionResponses(options []valuation.CatalogOption) []CatalogOptionResponse {
	out := make([]CatalogOptionResponse, len(options))
	for i, o := range options {
		out[i] = CatalogOptionResponse{Value: o.Value, Label: o.Label}
	}
	return out
}

// ToTrimOptionResponses converts trim picker entries
func ToTrimOptionResponses(options []valuation.TrimOption) []TrimOptionResponse {
	out := make([]TrimOptionResponse, len(options))
	for i, o := range options {
		out[i] = TrimOptionResponse{Trim: o.Trim, Gid: o.Gid}
	}
	return out
}

func nullableFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
