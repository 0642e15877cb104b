package wizard

// State is the serializable wizard state: the cursor plus every confirmed step output.
// States are values; Advance and Retreat return a new State and never mutate their input.
type State struct {
	Current    Step            `json:"current"`
	Vehicle    *VehicleData    `json:"vehicle,omitempty"`
	Specs      *SpecsData      `json:"specs,omitempty"`
	Financing  *FinancingData  `json:"financing,omitempty"`
	Damage     *DamageData     `json:"damage,omitempty"`
	Additional *AdditionalData `json:"additional,omitempty"`
	Contact    *ContactData    `json:"contact,omitempty"`
}

// NewState returns an empty state positioned at the vehicle step
func NewState() State {
	return State{Current: StepVehicle}
}

// Advance validates out against the current step, stores it and moves forward one step.
// On any error the returned state is the unchanged input.
func Advance(s State, out StepOutput) (State, error) {
	if s.Current.IsTerminal() {
		return s, ErrWizardComplete
	}
	if out == nil {
		return s, NewFieldError(s.Current, "step", "step output is required")
	}
	if out.Step() != s.Current {
		return s, ErrStepMismatch
	}
	if err := ValidateOutput(out); err != nil {
		return s, err
	}

	next := apply(s, out)
	following, _ := s.Current.Next()
	next.Current = following
	return next, nil
}

// Retreat moves back one step keeping all entered data
func Retreat(s State) (State, error) {
	prev, ok := s.Current.Prev()
	if !ok {
		return s, ErrAtFirstStep
	}
	s.Current = prev
	return s, nil
}

// IsComplete reports whether the wizard has reached the report
func (s State) IsComplete() bool {
	return s.Current.IsTerminal()
}

// apply stores a copy of out in the matching slot. Later steps are left as they are.
func apply(s State, out StepOutput) State {
	switch o := out.(type) {
	case VehicleData:
		s.Vehicle = cloneVehicle(o)
	case *VehicleData:
		s.Vehicle = cloneVehicle(*o)
	case SpecsData:
		o.EngineOptions = append([]string{}, o.EngineOptions...)
		s.Specs = &o
	case *SpecsData:
		v := *o
		v.EngineOptions = append([]string{}, o.EngineOptions...)
		s.Specs = &v
	case FinancingData:
		s.Financing = &o
	case *FinancingData:
		v := *o
		s.Financing = &v
	case DamageData:
		s.Damage = &o
	case *DamageData:
		v := *o
		s.Damage = &v
	case AdditionalData:
		s.Additional = &o
	case *AdditionalData:
		v := *o
		s.Additional = &v
	case ContactData:
		s.Contact = &o
	case *ContactData:
		v := *o
		s.Contact = &v
	}
	return s
}

func cloneVehicle(v VehicleData) *VehicleData {
	if v.Mileage != nil {
		miles := *v.Mileage
		v.Mileage = &miles
	}
	return &v
}
