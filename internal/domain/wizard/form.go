package wizard

import (
	"strings"

	"github.com/tradein/backend/internal/domain/valuation"
)

// Phase is the active phase of the vehicle step
type Phase string

const (
	// PhaseIdentify resolves a vehicle identity by VIN or catalog selection
	PhaseIdentify Phase = "identify"
	// PhaseValue requests the valuation once gid and mileage are known
	PhaseValue Phase = "value"
)

// Submit labels per phase
const (
	LabelIdentify = "Find A Vehicle"
	LabelValue    = "Get Vehicle Value"
)

// VehicleForm is the in-progress vehicle step before it is confirmed
type VehicleForm struct {
	VIN       string `json:"vin,omitempty"`
	Year      int    `json:"year,omitempty"`
	Make      string `json:"make,omitempty"`
	Model     string `json:"model,omitempty"`
	Trim      string `json:"trim,omitempty"`
	Gid       string `json:"gid,omitempty"`
	Mileage   *int64 `json:"mileage,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// FormFromVehicle rebuilds the form from confirmed vehicle data so it stays editable after Retreat
func FormFromVehicle(v *VehicleData) VehicleForm {
	if v == nil {
		return VehicleForm{}
	}
	f := VehicleForm{
		VIN:       v.VIN,
		Year:      v.Year,
		Make:      v.Make,
		Model:     v.Model,
		Trim:      v.Trim,
		Gid:       v.Gid,
		Condition: v.Condition,
	}
	if v.Mileage != nil {
		miles := *v.Mileage
		f.Mileage = &miles
	}
	return f
}

// Phase returns PhaseValue once both gid and mileage are present
func (f VehicleForm) Phase() Phase {
	if strings.TrimSpace(f.Gid) != "" && f.Mileage != nil {
		return PhaseValue
	}
	return PhaseIdentify
}

// SubmitLabel returns the submit button label for the active phase
func (f VehicleForm) SubmitLabel() string {
	if f.Phase() == PhaseValue {
		return LabelValue
	}
	return LabelIdentify
}

// SubmitEnabled reports whether both trim and mileage are set
func (f VehicleForm) SubmitEnabled() bool {
	return strings.TrimSpace(f.Trim) != "" && f.Mileage != nil
}

// SelectCandidate fills the identity from a VIN decode candidate
func (f VehicleForm) SelectCandidate(c valuation.VinCandidate) VehicleForm {
	f.Year = c.Year
	f.Make = c.Make
	f.Model = c.Model
	f.Trim = c.Style
	f.Gid = c.Gid
	return f
}

// SelectTrim fills the trim and gid from a catalog trim option
func (f VehicleForm) SelectTrim(opt valuation.TrimOption) VehicleForm {
	f.Trim = opt.Trim
	f.Gid = opt.Gid
	return f
}

// Identity returns the vehicle identity held by the form
func (f VehicleForm) Identity() valuation.VehicleIdentity {
	return valuation.VehicleIdentity{
		Year:  f.Year,
		Make:  f.Make,
		Model: f.Model,
		Trim:  f.Trim,
		Gid:   f.Gid,
	}
}

// ReadyForValuation rejects a form that cannot be valued yet.
// It is checked before any provider call is made.
func (f VehicleForm) ReadyForValuation() error {
	if f.Mileage == nil {
		return NewFieldError(StepVehicle, "mileage", "mileage is required")
	}
	if strings.TrimSpace(f.Trim) == "" {
		return NewFieldError(StepVehicle, "trim", "trim is required")
	}
	if !f.Identity().HasGid() {
		return NewFieldError(StepVehicle, "gid", "select a trim with a resolved vehicle configuration")
	}
	return nil
}

// ToVehicleData converts the form into a vehicle step output without valuation figures
func (f VehicleForm) ToVehicleData() VehicleData {
	v := VehicleData{
		VIN:       strings.ToUpper(strings.TrimSpace(f.VIN)),
		Year:      f.Year,
		Make:      strings.TrimSpace(f.Make),
		Model:     strings.TrimSpace(f.Model),
		Trim:      strings.TrimSpace(f.Trim),
		Gid:       strings.TrimSpace(f.Gid),
		Condition: f.Condition,
	}
	if f.Mileage != nil {
		miles := *f.Mileage
		v.Mileage = &miles
	}
	return v
}
