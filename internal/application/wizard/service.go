package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/domain/wizard"
	"github.com/tradein/backend/internal/infrastructure/telemetry"
)

const spanService = "wizard"

// DefaultSessionTTL is the idle lifetime of a wizard session
const DefaultSessionTTL = 30 * time.Minute

// Quoter prices a resolved vehicle configuration
type Quoter interface {
	Quote(ctx context.Context, gid string, mileage int64) (valuation.ValuationQuote, error)
	PolicyName() string
}

// MetricsRecorder receives wizard progress events
type MetricsRecorder interface {
	RecordSessionStarted(ctx context.Context)
	RecordStepCompleted(ctx context.Context, step string)
	RecordQuote(ctx context.Context, policy string, err error)
	RecordReport(ctx context.Context)
}

type nopMetrics struct{}

func (nopMetrics) RecordSessionStarted(context.Context)        {}
func (nopMetrics) RecordStepCompleted(context.Context, string) {}
func (nopMetrics) RecordQuote(context.Context, string, error)  {}
func (nopMetrics) RecordReport(context.Context)                {}

// Config holds the session service settings
type Config struct {
	SessionTTL time.Duration
	Report     wizard.ReportConfig
	Locale     string
	Currency   string
}

// Option configures a SessionService
type Option func(*SessionService)

// WithMetrics sets the progress metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(s *SessionService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *SessionService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// SessionService runs wizard sessions: it owns the step state server-side and
// performs the vehicle valuation when the vehicle step is submitted.
type SessionService struct {
	sessions  wizard.SessionRepository
	quoter    Quoter
	ttl       time.Duration
	report    wizard.ReportConfig
	formatter *MoneyFormatter
	metrics   MetricsRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(sessions wizard.SessionRepository, quoter Quoter, cfg Config, opts ...Option) (*SessionService, error) {
	formatter, err := NewMoneyFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Report.TaxRate.IsZero() && cfg.Report.RangeFloor.IsZero() {
		cfg.Report = wizard.DefaultReportConfig()
	}

	s := &SessionService{
		sessions:  sessions,
		quoter:    quoter,
		ttl:       cfg.SessionTTL,
		report:    cfg.Report,
		formatter: formatter,
		metrics:   nopMetrics{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start creates a session positioned at the vehicle step
func (s *SessionService) Start(ctx context.Context) (*SessionView, error) {
	sess := wizard.NewSession(s.now(), s.ttl)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.metrics.RecordSessionStarted(ctx)
	s.logger.Debug("Wizard session started", zap.String("session_id", sess.ID.String()))
	return toSessionView(sess), nil
}

// Get returns the session view
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSessionView(sess), nil
}

// UpdateVehicleDraft patches the in-progress vehicle form.
// It is only allowed while the session is at the vehicle step.
func (s *SessionService) UpdateVehicleDraft(ctx context.Context, id uuid.UUID, req VehicleDraftRequest) (*SessionView, error) {
	sess, err := s.mutate(ctx, id, func(sess *wizard.Session) error {
		if sess.State.Current != wizard.StepVehicle {
			return wizard.ErrStepMismatch
		}
		sess.Form = req.Apply(sess.Form)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toSessionView(sess), nil
}

// SubmitStep confirms the current step with its output and advances.
// body holds the step's JSON output; for the vehicle step it is an optional
// VehicleDraftRequest applied before the valuation is requested.
// On any failure the stored session is left unchanged.
func (s *SessionService) SubmitStep(ctx context.Context, id uuid.UUID, stepName string, body json.RawMessage) (*SessionView, error) {
	step, ok := wizard.ParseStep(stepName)
	if !ok {
		return nil, wizard.ErrUnknownStep
	}

	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "submit_step",
		telemetry.SpanAttrSessionID, id,
		telemetry.SpanAttrStep, stepName,
	)
	defer span.End()

	sess, err := s.mutate(ctx, id, func(sess *wizard.Session) error {
		if sess.State.Current.IsTerminal() {
			return wizard.ErrWizardComplete
		}
		if sess.State.Current != step {
			return wizard.ErrStepMismatch
		}
		out, err := s.stepOutput(ctx, sess, step, body)
		if err != nil {
			return err
		}
		next, err := wizard.Advance(sess.State, out)
		if err != nil {
			return err
		}
		sess.State = next
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordStepCompleted(ctx, step.String())
	telemetry.SetOK(span)
	return toSessionView(sess), nil
}

// Back moves the session one step back, keeping every step's data
func (s *SessionService) Back(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	sess, err := s.mutate(ctx, id, func(sess *wizard.Session) error {
		prev, err := wizard.Retreat(sess.State)
		if err != nil {
			return err
		}
		sess.State = prev
		if prev.Current == wizard.StepVehicle {
			sess.Form = wizard.FormFromVehicle(prev.Vehicle)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toSessionView(sess), nil
}

// Report renders the trade-in summary of a completed session
func (s *SessionService) Report(ctx context.Context, id uuid.UUID) (*ReportResponse, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := wizard.BuildReport(sess.State, s.report)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReport(ctx)
	return s.toReportResponse(report, sess.State), nil
}

// Discard deletes the session
func (s *SessionService) Discard(ctx context.Context, id uuid.UUID) error {
	return s.sessions.Delete(ctx, id)
}

// mutate loads the session, applies fn and saves it. Nothing is saved when fn fails.
func (s *SessionService) mutate(ctx context.Context, id uuid.UUID, fn func(*wizard.Session) error) (*wizard.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.Touch(s.now(), s.ttl)
	if err := s.sessions.Save(ctx, sess); err != nil {
		if errors.Is(err, wizard.ErrSessionConflict) {
			s.logger.Info("Wizard session write conflict", zap.String("session_id", id.String()))
		}
		return nil, err
	}
	return sess, nil
}

// stepOutput decodes body into the output type of step
func (s *SessionService) stepOutput(ctx context.Context, sess *wizard.Session, step wizard.Step, body json.RawMessage) (wizard.StepOutput, error) {
	switch step {
	case wizard.StepVehicle:
		var draft VehicleDraftRequest
		if err := decodeStrict(step, body, &draft); err != nil {
			return nil, err
		}
		form := draft.Apply(sess.Form)
		vehicle, err := s.valueVehicle(ctx, form)
		if err != nil {
			return nil, err
		}
		sess.Form = form
		return vehicle, nil
	case wizard.StepSpecs:
		out := wizard.DefaultSpecs()
		if prev := sess.State.Specs; prev != nil {
			out = *prev
		}
		if err := decodeStrict(step, body, &out); err != nil {
			return nil, err
		}
		return out, nil
	case wizard.StepFinancing:
		out := wizard.DefaultFinancing()
		if prev := sess.State.Financing; prev != nil {
			out = *prev
		}
		if err := decodeStrict(step, body, &out); err != nil {
			return nil, err
		}
		return out, nil
	case wizard.StepDamage:
		var out wizard.DamageData
		if err := decodeStrict(step, body, &out); err != nil {
			return nil, err
		}
		return out, nil
	case wizard.StepAdditional:
		var out wizard.AdditionalData
		if err := decodeStrict(step, body, &out); err != nil {
			return nil, err
		}
		return out, nil
	case wizard.StepContact:
		var out wizard.ContactData
		if err := decodeStrict(step, body, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, wizard.ErrWizardComplete
	}
}

// valueVehicle runs the phase-2 valuation for a form with a resolved gid and mileage
func (s *SessionService) valueVehicle(ctx context.Context, form wizard.VehicleForm) (wizard.VehicleData, error) {
	if err := form.ReadyForValuation(); err != nil {
		return wizard.VehicleData{}, err
	}
	vehicle := form.ToVehicleData()
	if err := wizard.ValidateOutput(vehicle); err != nil {
		return wizard.VehicleData{}, err
	}

	quote, err := s.quoter.Quote(ctx, vehicle.Gid, *vehicle.Mileage)
	s.metrics.RecordQuote(ctx, s.quoter.PolicyName(), err)
	if err != nil {
		return wizard.VehicleData{}, err
	}
	return vehicle.WithQuote(quote), nil
}

// decodeStrict decodes a step body, rejecting unknown fields. An empty body leaves out untouched.
func decodeStrict(step wizard.Step, body json.RawMessage, out any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return wizard.NewFieldError(step, "body", "request body is not valid for the "+step.String()+" step")
	}
	return nil
}

func (s *SessionService) toReportResponse(r wizard.Report, state wizard.State) *ReportResponse {
	resp := &ReportResponse{
		Vehicle: toVehicleView(r.Vehicle),
		Estimate: EstimateView{
			Min: r.Estimate.Min.InexactFloat64(),
			Max: r.Estimate.Max.InexactFloat64(),
		},
		BlackBookValue:  r.BlackBookValue.InexactFloat64(),
		TaxSavings:      r.TaxSavings.InexactFloat64(),
		TotalBenefit:    r.TotalBenefit.InexactFloat64(),
		PriceAdjustment: r.PriceAdjustment.InexactFloat64(),
		MileageStatus:   r.MileageStatus,
		Display: ReportDisplay{
			EstimateMin:     s.formatter.Format(r.Estimate.Min),
			EstimateMax:     s.formatter.Format(r.Estimate.Max),
			BlackBookValue:  s.formatter.Format(r.BlackBookValue),
			TaxSavings:      s.formatter.Format(r.TaxSavings),
			TotalBenefit:    s.formatter.Format(r.TotalBenefit),
			PriceAdjustment: s.formatter.Format(r.PriceAdjustment),
		},
		Details:     toStateView(state),
		GeneratedAt: s.now(),
	}
	if r.MarketValue.Valid {
		f := r.MarketValue.Decimal.InexactFloat64()
		resp.MarketValue = &f
	}
	return resp
}
