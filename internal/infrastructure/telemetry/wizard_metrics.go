package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// WizardMetrics records trade-in wizard progress.
type WizardMetrics struct {
	sessionsStarted *Counter // wizard_session_started_total
	stepsCompleted  *Counter // wizard_step_completed_total
	quotes          *Counter // wizard_quote_total
	reports         *Counter // wizard_report_total
}

// NewWizardMetrics creates the wizard instruments on meter.
func NewWizardMetrics(meter metric.Meter) (*WizardMetrics, error) {
	sessionsStarted, err := NewCounter(meter,
		"wizard_session_started_total",
		"Total number of trade-in wizard sessions started",
		"{session}",
	)
	if err != nil {
		return nil, err
	}

	stepsCompleted, err := NewCounter(meter,
		"wizard_step_completed_total",
		"Total number of wizard steps confirmed by step",
		"{step}",
	)
	if err != nil {
		return nil, err
	}

	quotes, err := NewCounter(meter,
		"wizard_quote_total",
		"Total number of vehicle valuation quotes by outcome and mileage policy",
		"{quote}",
	)
	if err != nil {
		return nil, err
	}

	reports, err := NewCounter(meter,
		"wizard_report_total",
		"Total number of trade-in reports rendered",
		"{report}",
	)
	if err != nil {
		return nil, err
	}

	return &WizardMetrics{
		sessionsStarted: sessionsStarted,
		stepsCompleted:  stepsCompleted,
		quotes:          quotes,
		reports:         reports,
	}, nil
}

// RecordSessionStarted counts a new wizard session.
func (m *WizardMetrics) RecordSessionStarted(ctx context.Context) {
	m.sessionsStarted.Inc(ctx)
}

// RecordStepCompleted counts a confirmed step.
func (m *WizardMetrics) RecordStepCompleted(ctx context.Context, step string) {
	m.stepsCompleted.Inc(ctx, AttrStep.String(step))
}

// RecordQuote counts a valuation quote attempt.
func (m *WizardMetrics) RecordQuote(ctx context.Context, policy string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.quotes.Inc(ctx, AttrPolicy.String(policy), AttrOutcome.String(outcome))
}

// RecordReport counts a rendered report.
func (m *WizardMetrics) RecordReport(ctx context.Context) {
	m.reports.Inc(ctx)
}
