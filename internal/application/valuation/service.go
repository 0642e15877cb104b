package valuation

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/infrastructure/telemetry"
)

const spanService = "valuation"

// GatewayService validates caller input and turns provider data into canonical results.
// Malformed input is rejected before any provider call.
type GatewayService struct {
	provider       valuation.Provider
	policy         valuation.MileagePolicy
	defaultAvgMile int64
	logger         *zap.Logger
}

// NewGatewayService creates a new GatewayService.
// defaultAverageMileage is used when the provider reports no average mileage.
func NewGatewayService(
	provider valuation.Provider,
	policy valuation.MileagePolicy,
	defaultAverageMileage int64,
	logger *zap.Logger,
) *GatewayService {
	if policy == nil {
		policy, _ = valuation.NewMileagePolicy(valuation.PolicyLinear, valuation.DefaultRatePerThousand, valuation.DefaultFlatAmount)
	}
	if defaultAverageMileage <= 0 {
		defaultAverageMileage = valuation.DefaultAverageMileage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayService{
		provider:       provider,
		policy:         policy,
		defaultAvgMile: defaultAverageMileage,
		logger:         logger,
	}
}

// PolicyName returns the active mileage policy name
func (s *GatewayService) PolicyName() string {
	return s.policy.Name()
}

// DecodeVIN returns the trim-level candidates for a VIN.
// An empty match list is reported as a no-match error.
func (s *GatewayService) DecodeVIN(ctx context.Context, vin string) ([]valuation.VinCandidate, error) {
	const op = "decode VIN"
	normalized, err := valuation.NormalizeVIN(vin)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "decode_vin")
	defer span.End()

	candidates, err := s.provider.DecodeVIN(ctx, normalized)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(candidates))
	if len(candidates) == 0 {
		return nil, valuation.NewNoMatchError(op, "No vehicles found for this VIN")
	}
	return candidates, nil
}

// GetPricing returns the canonical pricing for a gid
func (s *GatewayService) GetPricing(ctx context.Context, gid string) (valuation.PricingResult, error) {
	record, err := s.vehicle(ctx, "get pricing", gid)
	if err != nil {
		return valuation.PricingResult{}, err
	}
	return record.Pricing()
}

// GetValue returns the canonical pricing together with the provider payload
func (s *GatewayService) GetValue(ctx context.Context, gid string) (*VehicleValueResponse, error) {
	record, err := s.vehicle(ctx, "get value", gid)
	if err != nil {
		return nil, err
	}
	pricing, err := record.Pricing()
	if err != nil {
		return nil, err
	}
	return &VehicleValueResponse{
		TradeInValue: pricing.TradeInValue.InexactFloat64(),
		MarketValue:  nullableFloat(pricing.MarketValue),
		BasePrice:    pricing.BasePrice.InexactFloat64(),
		RawResponse:  record.Raw,
	}, nil
}

// GetMileageAdjustment computes the mileage adjustment for a gid
func (s *GatewayService) GetMileageAdjustment(ctx context.Context, gid string, mileage int64) (valuation.MileageAdjustment, error) {
	const op = "get mileage adjustment"
	if err := valuation.ValidateMileage(op, mileage); err != nil {
		return valuation.MileageAdjustment{}, err
	}
	record, err := s.vehicle(ctx, op, gid)
	if err != nil {
		return valuation.MileageAdjustment{}, err
	}
	avg := record.AverageMileageOr(s.defaultAvgMile)
	return valuation.ComputeMileageAdjustment(s.policy, avg, mileage), nil
}

// Quote issues the pricing and mileage lookups concurrently and joins them.
// Both must succeed; the first failure cancels the other call.
func (s *GatewayService) Quote(ctx context.Context, gid string, mileage int64) (valuation.ValuationQuote, error) {
	const op = "quote"
	if err := valuation.ValidateGid(op, gid); err != nil {
		return valuation.ValuationQuote{}, err
	}
	if err := valuation.ValidateMileage(op, mileage); err != nil {
		return valuation.ValuationQuote{}, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, spanService, op,
		telemetry.SpanAttrGid, gid,
		telemetry.SpanAttrMileage, mileage,
		telemetry.SpanAttrPolicy, s.policy.Name(),
	)
	defer span.End()

	var (
		quote valuation.ValuationQuote
		err   error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("Quote", map[string]string{
		telemetry.ProfilingLabelPolicy: s.policy.Name(),
	}), func(c context.Context) {
		quote, err = s.quote(c, gid, mileage)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Valuation quote failed",
			zap.String("gid", gid),
			zap.Int64("mileage", mileage),
			zap.Error(err),
		)
		return valuation.ValuationQuote{}, err
	}
	telemetry.SetOK(span)
	return quote, nil
}

func (s *GatewayService) quote(ctx context.Context, gid string, mileage int64) (valuation.ValuationQuote, error) {
	var (
		pricing    valuation.PricingResult
		raw        json.RawMessage
		adjustment valuation.MileageAdjustment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record, err := s.provider.GetVehicle(gctx, gid)
		if err != nil {
			return err
		}
		pricing, err = record.Pricing()
		raw = record.Raw
		return err
	})
	g.Go(func() error {
		record, err := s.provider.GetVehicle(gctx, gid)
		if err != nil {
			return err
		}
		adjustment = valuation.ComputeMileageAdjustment(s.policy, record.AverageMileageOr(s.defaultAvgMile), mileage)
		return nil
	})
	if err := g.Wait(); err != nil {
		return valuation.ValuationQuote{}, err
	}

	return valuation.ValuationQuote{
		Pricing:    pricing,
		Adjustment: adjustment,
		Raw:        raw,
	}, nil
}

// ListMakes returns the makes catalogued for a model year
func (s *GatewayService) ListMakes(ctx context.Context, year int) ([]valuation.CatalogOption, error) {
	if err := valuation.ValidateYear("list makes", year); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "list_makes", telemetry.SpanAttrYear, year)
	defer span.End()

	makes, err := s.provider.ListMakes(ctx, year)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(makes))
	return makes, nil
}

// ListModels returns the models of a make for a model year
func (s *GatewayService) ListModels(ctx context.Context, year int, makeName string) ([]string, error) {
	const op = "list models"
	if err := valuation.ValidateYear(op, year); err != nil {
		return nil, err
	}
	makeName, err := valuation.RequireText(op, "Make", makeName)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "list_models",
		telemetry.SpanAttrYear, year,
		telemetry.SpanAttrMake, makeName,
	)
	defer span.End()

	models, err := s.provider.ListModels(ctx, year, makeName)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(models))
	return models, nil
}

// ListTrims returns the trims of a model with their gids
func (s *GatewayService) ListTrims(ctx context.Context, year int, makeName, model string) ([]valuation.TrimOption, error) {
	const op = "list trims"
	if err := valuation.ValidateYear(op, year); err != nil {
		return nil, err
	}
	makeName, err := valuation.RequireText(op, "Make", makeName)
	if err != nil {
		return nil, err
	}
	model, err = valuation.RequireText(op, "Model", model)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "list_trims",
		telemetry.SpanAttrYear, year,
		telemetry.SpanAttrMake, makeName,
	)
	defer span.End()

	trims, err := s.provider.ListTrims(ctx, year, makeName, model)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(trims))
	return trims, nil
}

// ManualSearch passes a year/make/model search through to the provider
func (s *GatewayService) ManualSearch(ctx context.Context, year int, makeName, model string) (json.RawMessage, error) {
	const op = "manual search"
	if err := valuation.ValidateYear(op, year); err != nil {
		return nil, err
	}
	makeName, err := valuation.RequireText(op, "Make", makeName)
	if err != nil {
		return nil, err
	}
	model, err = valuation.RequireText(op, "Model", model)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "manual_search", telemetry.SpanAttrYear, year)
	defer span.End()

	raw, err := s.provider.ManualSearch(ctx, year, valuation.FormatMake(makeName), model)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return raw, nil
}

// ManualLookup posts a manual vehicle identification to the provider
func (s *GatewayService) ManualLookup(ctx context.Context, req ManualLookupRequest) (json.RawMessage, error) {
	const op = "manual lookup"
	if err := valuation.ValidateYear(op, req.Year); err != nil {
		return nil, err
	}
	makeName, err := valuation.RequireText(op, "Make", req.Make)
	if err != nil {
		return nil, err
	}
	model, err := valuation.RequireText(op, "Model", req.Model)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "manual_lookup", telemetry.SpanAttrYear, req.Year)
	defer span.End()

	raw, err := s.provider.ManualLookup(ctx, valuation.ManualLookup{
		Year:  req.Year,
		Make:  valuation.FormatMake(makeName),
		Model: model,
		Trim:  req.Trim,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return raw, nil
}

// vehicle validates gid and fetches the provider record
func (s *GatewayService) vehicle(ctx context.Context, op, gid string) (*valuation.VehicleRecord, error) {
	if err := valuation.ValidateGid(op, gid); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get_vehicle", telemetry.SpanAttrGid, gid)
	defer span.End()

	record, err := s.provider.GetVehicle(ctx, gid)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return record, nil
}
