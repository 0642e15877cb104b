package wizard

import (
	"github.com/shopspring/decimal"

	"github.com/tradein/backend/internal/domain/valuation"
)

// StepOutput is the confirmed data of one wizard step
type StepOutput interface {
	Step() Step
}

// Vehicle conditions
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
)

// Financing statuses
const (
	FinancingFinanced = "financed"
	FinancingLeased   = "leased"
	FinancingOwned    = "owned"
)

// Spec option ids offered by the specs step
var (
	ExteriorColors = []string{"agate-black", "oxford-white", "iconic-silver", "carbonized-gray", "rapid-red", "atlas-blue", "forged-green", "desert-gold"}
	InteriorColors = []string{"onyx", "sandstone", "cognac", "space-gray", "ceramic", "navy-pier"}
	EngineOptions  = []string{"3.5l-ecoboost", "3.0l-diesel"}
)

// Spec defaults
const (
	DefaultExteriorColor = "agate-black"
	DefaultInteriorColor = "sandstone"
)

// VehicleData is the vehicle step output: the resolved identity, the odometer
// reading and the valuation merged in once the quote succeeds.
type VehicleData struct {
	VIN       string `json:"vin,omitempty" validate:"omitempty,len=17"`
	Year      int    `json:"year" validate:"required,min=1980"`
	Make      string `json:"make" validate:"required,max=64"`
	Model     string `json:"model" validate:"required,max=64"`
	Trim      string `json:"trim" validate:"required,max=128"`
	Gid       string `json:"gid" validate:"required,max=64"`
	Mileage   *int64 `json:"mileage" validate:"required,min=0,max=2000000"`
	Condition string `json:"condition,omitempty" validate:"omitempty,oneof=excellent good fair poor"`

	BasePrice       decimal.Decimal     `json:"vehicleBasePrice"`
	MarketValue     decimal.NullDecimal `json:"vehicleMarketValue"`
	TradeInValue    decimal.Decimal     `json:"vehicleTradeInValue"`
	PriceAdjustment decimal.Decimal     `json:"vehiclePriceAdjustment"`
	Desirable       bool                `json:"vehicleDesirability"`
	AverageMileage  int64               `json:"vehicleAverageMileage"`
}

// Step implements StepOutput
func (VehicleData) Step() Step { return StepVehicle }

// WithQuote merges a valuation quote into the vehicle data
func (v VehicleData) WithQuote(q valuation.ValuationQuote) VehicleData {
	v.BasePrice = q.Pricing.BasePrice
	v.MarketValue = q.Pricing.MarketValue
	v.TradeInValue = q.Pricing.TradeInValue
	v.PriceAdjustment = q.Adjustment.Amount
	v.Desirable = q.Adjustment.Desirable
	v.AverageMileage = q.Adjustment.BaseMiles
	return v
}

// SpecsData is the specs step output
type SpecsData struct {
	ExteriorColor string   `json:"exteriorColor" validate:"required,oneof=agate-black oxford-white iconic-silver carbonized-gray rapid-red atlas-blue forged-green desert-gold"`
	InteriorColor string   `json:"interiorColor" validate:"required,oneof=onyx sandstone cognac space-gray ceramic navy-pier"`
	EngineOptions []string `json:"engineOptions" validate:"max=2,dive,oneof=3.5l-ecoboost 3.0l-diesel"`
}

// Step implements StepOutput
func (SpecsData) Step() Step { return StepSpecs }

// DefaultSpecs returns the preselected specs
func DefaultSpecs() SpecsData {
	return SpecsData{
		ExteriorColor: DefaultExteriorColor,
		InteriorColor: DefaultInteriorColor,
		EngineOptions: []string{},
	}
}

// FinancingData is the financing step output
type FinancingData struct {
	FinancingStatus string `json:"financingStatus" validate:"required,oneof=financed leased owned"`
}

// Step implements StepOutput
func (FinancingData) Step() Step { return StepFinancing }

// DefaultFinancing returns the preselected financing status
func DefaultFinancing() FinancingData {
	return FinancingData{FinancingStatus: FinancingOwned}
}

// DamageData is the damage disclosure step output
type DamageData struct {
	HasAccident     bool   `json:"hasAccident"`
	AccidentDetails string `json:"accidentDetails" validate:"required_if=HasAccident true,max=2000"`
	NeedsRepairs    bool   `json:"needsRepairs"`
	RepairDetails   string `json:"repairDetails" validate:"required_if=NeedsRepairs true,max=2000"`
}

// Step implements StepOutput
func (DamageData) Step() Step { return StepDamage }

// AdditionalData is the additional disclosures step output
type AdditionalData struct {
	HasWinterTires      bool   `json:"hasWinterTires"`
	HasOriginalKeys     bool   `json:"hasOriginalKeys"`
	HasModifications    bool   `json:"hasModifications"`
	ModificationDetails string `json:"modificationDetails" validate:"required_if=HasModifications true,max=2000"`
}

// Step implements StepOutput
func (AdditionalData) Step() Step { return StepAdditional }

// ContactData is the contact step output
type ContactData struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"required,phone"`
	Email       string `json:"email" validate:"required,email,max=254"`
	AcceptTerms bool   `json:"acceptTerms" validate:"eq=true"`
}

// Step implements StepOutput
func (ContactData) Step() Step { return StepContact }
