package wizard

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/domain/wizard"
)

// VehicleDraftRequest patches the in-progress vehicle step.
// Nil fields are left unchanged. Changing year, make or model clears the
// selections that depend on it, mirroring the cascading catalog pickers.
// Candidate and TrimOption echo back an entry from the VIN decode or trims
// listing; they are applied before the individual fields.
type VehicleDraftRequest struct {
	VIN        *string             `json:"vin" binding:"omitempty,max=17"`
	Candidate  *CandidateSelection `json:"candidate"`
	Year       *int                `json:"year" binding:"omitempty,min=1980"`
	Make       *string             `json:"make" binding:"omitempty,max=64"`
	Model      *string             `json:"model" binding:"omitempty,max=64"`
	TrimOption *TrimSelection      `json:"trimOption"`
	Trim       *string             `json:"trim" binding:"omitempty,max=128"`
	Gid        *string             `json:"gid" binding:"omitempty,max=64"`
	Mileage    *int64              `json:"mileage" binding:"omitempty,min=0,max=2000000"`
	Condition  *string             `json:"condition" binding:"omitempty,oneof=excellent good fair poor"`
}

// CandidateSelection is one VIN decode candidate picked by the client
type CandidateSelection struct {
	Gid   string `json:"gid" binding:"required,max=64"`
	Year  int    `json:"year"`
	Make  string `json:"make" binding:"max=64"`
	Model string `json:"model" binding:"max=64"`
	Style string `json:"style" binding:"max=128"`
}

// TrimSelection is one entry of the trims listing picked by the client
type TrimSelection struct {
	Trim string `json:"trim" binding:"required,max=128"`
	Gid  string `json:"gid" binding:"max=64"`
}

// Apply returns form with the request's fields applied
func (r VehicleDraftRequest) Apply(f wizard.VehicleForm) wizard.VehicleForm {
	if r.VIN != nil {
		f.VIN = strings.ToUpper(strings.TrimSpace(*r.VIN))
	}
	if c := r.Candidate; c != nil {
		f = f.SelectCandidate(valuation.VinCandidate{
			Gid:   strings.TrimSpace(c.Gid),
			Year:  c.Year,
			Make:  strings.TrimSpace(c.Make),
			Model: strings.TrimSpace(c.Model),
			Style: strings.TrimSpace(c.Style),
		})
	}
	if r.Year != nil && *r.Year != f.Year {
		f.Year = *r.Year
		f.Make, f.Model, f.Trim, f.Gid = "", "", "", ""
	}
	if r.Make != nil && !strings.EqualFold(strings.TrimSpace(*r.Make), f.Make) {
		f.Make = strings.TrimSpace(*r.Make)
		f.Model, f.Trim, f.Gid = "", "", ""
	}
	if r.Model != nil && strings.TrimSpace(*r.Model) != f.Model {
		f.Model = strings.TrimSpace(*r.Model)
		f.Trim, f.Gid = "", ""
	}
	if opt := r.TrimOption; opt != nil {
		f = f.SelectTrim(valuation.TrimOption{Trim: strings.TrimSpace(opt.Trim), Gid: strings.TrimSpace(opt.Gid)})
	}
	if r.Trim != nil {
		// a bare trim carries no gid
		f = f.SelectTrim(valuation.TrimOption{Trim: strings.TrimSpace(*r.Trim)})
	}
	if r.Gid != nil {
		f.Gid = strings.TrimSpace(*r.Gid)
	}
	if r.Mileage != nil {
		miles := *r.Mileage
		f.Mileage = &miles
	}
	if r.Condition != nil {
		f.Condition = *r.Condition
	}
	return f
}

// SessionView is the client-facing view of a wizard session
type SessionView struct {
	ID          uuid.UUID       `json:"id"`
	Step        string          `json:"step"`
	StepNumber  int             `json:"stepNumber"`
	TotalSteps  int             `json:"totalSteps"`
	Steps       []string        `json:"steps"`
	State       StateView       `json:"state"`
	VehicleForm VehicleFormView `json:"vehicleForm"`
	Version     int64           `json:"version"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

// StateView holds the confirmed output of each completed step
type StateView struct {
	Vehicle    *VehicleView           `json:"vehicle,omitempty"`
	Specs      *wizard.SpecsData      `json:"specs,omitempty"`
	Financing  *wizard.FinancingData  `json:"financing,omitempty"`
	Damage     *wizard.DamageData     `json:"damage,omitempty"`
	Additional *wizard.AdditionalData `json:"additional,omitempty"`
	Contact    *wizard.ContactData    `json:"contact,omitempty"`
}

// VehicleView is the confirmed vehicle step with its merged valuation
type VehicleView struct {
	VIN                    string   `json:"vin,omitempty"`
	Year                   int      `json:"year"`
	Make                   string   `json:"make"`
	Model                  string   `json:"model"`
	Trim                   string   `json:"trim"`
	Gid                    string   `json:"gid"`
	Mileage                int64    `json:"mileage"`
	Condition              string   `json:"condition,omitempty"`
	VehicleBasePrice       float64  `json:"vehicleBasePrice"`
	VehicleMarketValue     *float64 `json:"vehicleMarketValue"`
	VehicleTradeInValue    float64  `json:"vehicleTradeInValue"`
	VehiclePriceAdjustment float64  `json:"vehiclePriceAdjustment"`
	VehicleDesirability    bool     `json:"vehicleDesirability"`
	VehicleAverageMileage  int64    `json:"vehicleAverageMileage"`
}

// VehicleFormView is the in-progress vehicle step with its submit state
type VehicleFormView struct {
	wizard.VehicleForm
	Phase         string `json:"phase"`
	SubmitLabel   string `json:"submitLabel"`
	SubmitEnabled bool   `json:"submitEnabled"`
}

// ReportResponse is the trade-in summary of a completed wizard
type ReportResponse struct {
	Vehicle         VehicleView   `json:"vehicle"`
	Estimate        EstimateView  `json:"estimate"`
	BlackBookValue  float64       `json:"blackBookValue"`
	TaxSavings      float64       `json:"taxSavings"`
	TotalBenefit    float64       `json:"totalBenefit"`
	MarketValue     *float64      `json:"marketValue"`
	PriceAdjustment float64       `json:"priceAdjustment"`
	MileageStatus   string        `json:"mileageStatus"`
	Display         ReportDisplay `json:"display"`
	Details         StateView     `json:"details"`
	GeneratedAt     time.Time     `json:"generatedAt"`
}

// EstimateView is the estimated trade-in range
type EstimateView struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ReportDisplay holds the report figures formatted as currency
type ReportDisplay struct {
	EstimateMin     string `json:"estimateMin"`
	EstimateMax     string `json:"estimateMax"`
	BlackBookValue  string `json:"blackBookValue"`
	TaxSavings      string `json:"taxSavings"`
	TotalBenefit    string `json:"totalBenefit"`
	PriceAdjustment string `json:"priceAdjustment"`
}

func toSessionView(s *wizard.Session) *SessionView {
	steps := wizard.Steps()
	names := make([]string, len(steps))
	for i, step := range steps {
		names[i] = step.String()
	}
	return &SessionView{
		ID:          s.ID,
		Step:        s.State.Current.String(),
		StepNumber:  s.State.Current.Number(),
		TotalSteps:  wizard.TotalSteps,
		Steps:       names,
		State:       toStateView(s.State),
		VehicleForm: toVehicleFormView(s.Form),
		Version:     s.Version,
		ExpiresAt:   s.ExpiresAt,
	}
}

func toStateView(s wizard.State) StateView {
	view := StateView{
		Specs:      s.Specs,
		Financing:  s.Financing,
		Damage:     s.Damage,
		Additional: s.Additional,
		Contact:    s.Contact,
	}
	if s.Vehicle != nil {
		v := toVehicleView(*s.Vehicle)
		view.Vehicle = &v
	}
	return view
}

func toVehicleView(v wizard.VehicleData) VehicleView {
	view := VehicleView{
		VIN:                    v.VIN,
		Year:                   v.Year,
		Make:                   v.Make,
		Model:                  v.Model,
		Trim:                   v.Trim,
		Gid:                    v.Gid,
		Condition:              v.Condition,
		VehicleBasePrice:       v.BasePrice.InexactFloat64(),
		VehicleTradeInValue:    v.TradeInValue.InexactFloat64(),
		VehiclePriceAdjustment: v.PriceAdjustment.InexactFloat64(),
		VehicleDesirability:    v.Desirable,
		VehicleAverageMileage:  v.AverageMileage,
	}
	if v.Mileage != nil {
		view.Mileage = *v.Mileage
	}
	if v.MarketValue.Valid {
		f := v.MarketValue.Decimal.InexactFloat64()
		view.VehicleMarketValue = &f
	}
	return view
}

func toVehicleFormView(f wizard.VehicleForm) VehicleFormView {
	return VehicleFormView{
		VehicleForm:   f,
		Phase:         string(f.Phase()),
		SubmitLabel:   f.SubmitLabel(),
		SubmitEnabled: f.SubmitEnabled(),
	}
}
