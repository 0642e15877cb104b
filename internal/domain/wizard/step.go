package wizard

// Step is one stage of the trade-in wizard
type Step string

// Wizard steps in order
const (
	StepVehicle    Step = "vehicle"
	StepSpecs      Step = "specs"
	StepFinancing  Step = "financing"
	StepDamage     Step = "damage"
	StepAdditional Step = "additional"
	StepContact    Step = "contact"
	StepReport     Step = "report"
)

var stepOrder = []Step{
	StepVehicle,
	StepSpecs,
	StepFinancing,
	StepDamage,
	StepAdditional,
	StepContact,
	StepReport,
}

// TotalSteps is the number of wizard steps including the report
var TotalSteps = len(stepOrder)

// Steps returns the wizard steps in order
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// ParseStep converts a string to a Step
func ParseStep(s string) (Step, bool) {
	step := Step(s)
	return step, step.IsValid()
}

// IsValid reports whether s is a known step
func (s Step) IsValid() bool {
	return s.index() >= 0
}

// IsTerminal reports whether s is the report step
func (s Step) IsTerminal() bool {
	return s == StepReport
}

// Number returns the 1-based position of the step
func (s Step) Number() int {
	return s.index() + 1
}

// Next returns the following step. The report step has no successor.
func (s Step) Next() (Step, bool) {
	i := s.index()
	if i < 0 || i+1 >= len(stepOrder) {
		return s, false
	}
	return stepOrder[i+1], true
}

// Prev returns the preceding step. The vehicle step has no predecessor.
func (s Step) Prev() (Step, bool) {
	i := s.index()
	if i <= 0 {
		return s, false
	}
	return stepOrder[i-1], true
}

// String implements fmt.Stringer
func (s Step) String() string {
	return string(s)
}

func (s Step) index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}
