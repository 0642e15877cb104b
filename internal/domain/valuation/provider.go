package valuation

import (
	"context"
	"encoding/json"
)

// Provider is the port to the external valuation provider.
// Implementations return *Error values for every failure.
type Provider interface {
	// DecodeVIN returns the trim-level candidates for a normalized VIN
	DecodeVIN(ctx context.Context, vin string) ([]VinCandidate, error)

	// GetVehicle returns the vehicle record for one gid
	GetVehicle(ctx context.Context, gid string) (*VehicleRecord, error)

	// ListMakes returns the makes catalogued for a model year
	ListMakes(ctx context.Context, year int) ([]CatalogOption, error)

	// ListModels returns the model names for a year and make
	ListModels(ctx context.Context, year int, makeName string) ([]string, error)

	// ListTrims returns the trims for a year, make and model
	ListTrims(ctx context.Context, year int, makeName, model string) ([]TrimOption, error)

	// ManualSearch looks up vehicles by year, make and model
	ManualSearch(ctx context.Context, year int, makeName, model string) (json.RawMessage, error)

	// ManualLookup identifies one vehicle by year, make, model and trim
	ManualLookup(ctx context.Context, lookup ManualLookup) (json.RawMessage, error)
}
