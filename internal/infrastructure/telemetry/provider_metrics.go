package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ProviderMetricsConfig holds configuration for valuation provider call metrics.
type ProviderMetricsConfig struct {
	// SlowCallThreshold marks calls slower than this as slow (default: 2s).
	SlowCallThreshold time.Duration
}

// DefaultProviderMetricsConfig returns the default configuration.
func DefaultProviderMetricsConfig() ProviderMetricsConfig {
	return ProviderMetricsConfig{SlowCallThreshold: 2 * time.Second}
}

// ProviderMetrics records one observation per valuation provider call.
type ProviderMetrics struct {
	callTotal     *Counter   // provider_call_total
	callDuration  *Histogram // provider_call_duration_seconds
	slowCallTotal *Counter   // provider_slow_call_total

	config ProviderMetricsConfig
	logger *zap.Logger
}

// NewProviderMetrics creates the provider call instruments on meter.
func NewProviderMetrics(meter metric.Meter, cfg ProviderMetricsConfig, logger *zap.Logger) (*ProviderMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowCallThreshold <= 0 {
		cfg.SlowCallThreshold = DefaultProviderMetricsConfig().SlowCallThreshold
	}

	callTotal, err := NewCounter(meter,
		"provider_call_total",
		"Total number of valuation provider calls by endpoint and outcome",
		"{call}",
	)
	if err != nil {
		return nil, err
	}

	callDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "provider_call_duration_seconds",
		Description: "Valuation provider call latency distribution in seconds",
		Unit:        "s",
		Boundaries:  ProviderDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	slowCallTotal, err := NewCounter(meter,
		"provider_slow_call_total",
		"Total number of slow valuation provider calls",
		"{call}",
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		callTotal:     callTotal,
		callDuration:  callDuration,
		slowCallTotal: slowCallTotal,
		config:        cfg,
		logger:        logger,
	}, nil
}

// RecordProviderCall records a provider call.
// statusCode is 0 when no response was received.
func (m *ProviderMetrics) RecordProviderCall(ctx context.Context, endpoint string, statusCode int, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	attrs := []attribute.KeyValue{
		AttrEndpoint.String(endpoint),
		AttrHTTPStatusCode.String(strconv.Itoa(statusCode)),
		AttrOutcome.String(outcome),
	}

	m.callTotal.Inc(ctx, attrs...)
	m.callDuration.RecordDuration(ctx, duration, AttrEndpoint.String(endpoint), AttrOutcome.String(outcome))

	if duration >= m.config.SlowCallThreshold {
		m.slowCallTotal.Inc(ctx, AttrEndpoint.String(endpoint))
		m.logger.Warn("Slow valuation provider call",
			zap.String("endpoint", endpoint),
			zap.Int("status", statusCode),
			zap.Duration("duration", duration),
			zap.Duration("threshold", m.config.SlowCallThreshold),
		)
	}
}
