package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// newTestMeter returns a meter backed by a manual reader
func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value of the data point carrying every attribute in attrs
func sumFor(t *testing.T, m *metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, kv := range attrs {
			v, found := dp.Attributes.Value(kv.Key)
			if !found || v != kv.Value {
				match = false
				break
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := NewMeterProvider(ctx, MetricsConfig{ServiceName: "tradein-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	ctx := context.Background()
	mp, err := NewMeterProvider(ctx, MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "tradein-test",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, mp.IsEnabled())
	_ = mp.Shutdown(ctx)
}

func TestCounterAndHistogram(t *testing.T) {
	reader, provider := newTestMeter(t)
	meter := provider.Meter("test")

	counter, err := NewCounter(meter, "test_total", "test counter", "{op}")
	require.NoError(t, err)
	counter.Inc(context.Background(), AttrOutcome.String(OutcomeSuccess))
	counter.Inc(context.Background(), AttrOutcome.String(OutcomeSuccess))

	hist, err := NewHistogram(meter, HistogramOpts{
		Name:       "test_duration_seconds",
		Unit:       "s",
		Boundaries: ProviderDurationBuckets,
	})
	require.NoError(t, err)
	hist.RecordDuration(context.Background(), 250*time.Millisecond)

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "test_total"), AttrOutcome.String(OutcomeSuccess)))

	m := findMetric(rm, "test_duration_seconds")
	require.NotNil(t, m)
	h, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(1), h.DataPoints[0].Count)
	assert.InDelta(t, 0.25, h.DataPoints[0].Sum, 1e-9)
	assert.Equal(t, ProviderDurationBuckets, h.DataPoints[0].Bounds)
}

func TestProviderMetrics_RecordProviderCall(t *testing.T) {
	reader, provider := newTestMeter(t)
	pm, err := NewProviderMetrics(provider.Meter("test"), ProviderMetricsConfig{SlowCallThreshold: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx := context.Background()
	pm.RecordProviderCall(ctx, "vehicle", 200, 100*time.Millisecond, nil)
	pm.RecordProviderCall(ctx, "vehicle", 503, 3*time.Second, errors.New("unavailable"))
	pm.RecordProviderCall(ctx, "makes", 0, 10*time.Millisecond, errors.New("dial"))

	rm := collect(t, reader)
	calls := findMetric(rm, "provider_call_total")
	assert.Equal(t, int64(2), sumFor(t, calls, AttrEndpoint.String("vehicle")))
	assert.Equal(t, int64(1), sumFor(t, calls, AttrEndpoint.String("vehicle"), AttrOutcome.String(OutcomeError), AttrHTTPStatusCode.String("503")))
	assert.Equal(t, int64(1), sumFor(t, calls, AttrEndpoint.String("makes"), AttrHTTPStatusCode.String("0")))

	slow := findMetric(rm, "provider_slow_call_total")
	assert.Equal(t, int64(1), sumFor(t, slow, AttrEndpoint.String("vehicle")))

	assert.NotNil(t, findMetric(rm, "provider_call_duration_seconds"))
}

func TestNewProviderMetrics_DefaultThreshold(t *testing.T) {
	_, provider := newTestMeter(t)
	pm, err := NewProviderMetrics(provider.Meter("test"), ProviderMetricsConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, pm.config.SlowCallThreshold)
}

func TestWizardMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)
	wm, err := NewWizardMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	wm.RecordSessionStarted(ctx)
	wm.RecordStepCompleted(ctx, "vehicle")
	wm.RecordStepCompleted(ctx, "specs")
	wm.RecordQuote(ctx, "linear", nil)
	wm.RecordQuote(ctx, "linear", errors.New("upstream"))
	wm.RecordReport(ctx)

	rm := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "wizard_session_started_total")))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "wizard_step_completed_total"), AttrStep.String("specs")))
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "wizard_step_completed_total")))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "wizard_quote_total"), AttrPolicy.String("linear"), AttrOutcome.String(OutcomeError)))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "wizard_report_total")))
}
