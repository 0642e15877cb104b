package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStep_Order(t *testing.T) {
	assert.Equal(t, []Step{StepVehicle, StepSpecs, StepFinancing, StepDamage, StepAdditional, StepContact, StepReport}, Steps())
	assert.Equal(t, 7, TotalSteps)
	assert.Equal(t, 1, StepVehicle.Number())
	assert.Equal(t, 7, StepReport.Number())
}

func TestStep_NextPrev(t *testing.T) {
	next, ok := StepVehicle.Next()
	assert.True(t, ok)
	assert.Equal(t, StepSpecs, next)

	_, ok = StepReport.Next()
	assert.False(t, ok)

	prev, ok := StepReport.Prev()
	assert.True(t, ok)
	assert.Equal(t, StepContact, prev)

	_, ok = StepVehicle.Prev()
	assert.False(t, ok)
}

func TestParseStep(t *testing.T) {
	step, ok := ParseStep("damage")
	assert.True(t, ok)
	assert.Equal(t, StepDamage, step)

	_, ok = ParseStep("payment")
	assert.False(t, ok)
	assert.Equal(t, 0, Step("payment").Number())
}

func TestSteps_ReturnsCopy(t *testing.T) {
	steps := Steps()
	steps[0] = StepReport
	assert.Equal(t, StepVehicle, Steps()[0])
}
