// Package valuation contains the Valuation bounded context.
// It models what the trade-in flow needs from the external valuation provider.
//
// Key concepts:
//   - VehicleIdentity: year/make/model/trim plus the provider's configuration identifier (gid)
//   - VehicleRecord: provider vehicle data with every price field optional
//   - PricingResult: the canonical base/market/trade-in prices derived from a VehicleRecord
//   - MileagePolicy: strategy turning actual vs average mileage into a price adjustment
//   - Provider: port interface implemented by the provider adapter in infrastructure
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package valuation
