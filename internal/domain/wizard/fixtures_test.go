package wizard

import (
	"github.com/shopspring/decimal"
)

func int64Ptr(v int64) *int64 { return &v }

func validVehicle() VehicleData {
	return VehicleData{
		Year:            2003,
		Make:            "Honda",
		Model:           "Accord",
		Trim:            "EX 4dr Sedan",
		Gid:             "425364",
		Mileage:         int64Ptr(50000),
		Condition:       ConditionGood,
		BasePrice:       decimal.NewFromInt(20000),
		TradeInValue:    decimal.NewFromInt(20000),
		PriceAdjustment: decimal.NewFromInt(5000),
		Desirable:       true,
		AverageMileage:  100000,
	}
}

func validContact() ContactData {
	return ContactData{
		FirstName:   "Jordan",
		LastName:    "Lee",
		Phone:       "+1 416-555-0100",
		Email:       "jordan@example.com",
		AcceptTerms: true,
	}
}

// completeState walks a fresh state through every step
func completeState() State {
	s := NewState()
	outputs := []StepOutput{
		validVehicle(),
		DefaultSpecs(),
		DefaultFinancing(),
		DamageData{},
		AdditionalData{HasWinterTires: true},
		validContact(),
	}
	for _, out := range outputs {
		next, err := Advance(s, out)
		if err != nil {
			panic(err)
		}
		s = next
	}
	return s
}
