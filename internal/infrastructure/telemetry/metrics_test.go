package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"

	importapp "github.com/erp/lotledger/internal/application/import"
	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
)

var (
	_ appledger.Metrics = (*telemetry.LedgerMetrics)(nil)
	_ importapp.Metrics = (*telemetry.LedgerMetrics)(nil)
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    time.Minute,
		ServiceName:       "lotledger-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestConfigMapping(t *testing.T) {
	cfg := config.TelemetryConfig{
		MetricsEnabled:    true,
		CollectorEndpoint: "otel:4317",
		ExportInterval:    15 * time.Second,
		ServiceName:       "lotledger",
		Insecure:          true,
		DBTraceEnabled:    true,
	}
	m := telemetry.MetricsConfigFrom(cfg)
	assert.True(t, m.Enabled)
	assert.Equal(t, 15*time.Second, m.ExportInterval)

	tr := telemetry.TracingConfigFrom(cfg)
	assert.True(t, tr.Enabled)
	assert.Equal(t, "otel:4317", tr.CollectorEndpoint)
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewLedgerMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestLedgerMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	m, err := telemetry.NewLedgerMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.EventsCommitted(ctx, "shipment", 2)
	m.EventsCommitted(ctx, "shipment", 1)
	m.EventsCommitted(ctx, "receiving", 1)
	m.DuplicateSuppressed(ctx)
	m.CommitRetried(ctx)
	m.CommitRetried(ctx)
	m.CommitRejected(ctx, "INSUFFICIENT_INVENTORY")
	m.CommitRejected(ctx, "")
	m.ImportRow(ctx, "note", "duplicate")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(3), sumOf(t, rm, "ledger.events.committed", telemetry.AttrSourceType.String("shipment")))
	assert.Equal(t, int64(1), sumOf(t, rm, "ledger.events.committed", telemetry.AttrSourceType.String("receiving")))
	assert.Equal(t, int64(1), sumOf(t, rm, "ledger.duplicates.suppressed"))
	assert.Equal(t, int64(2), sumOf(t, rm, "ledger.commit.retries"))
	assert.Equal(t, int64(1), sumOf(t, rm, "ledger.commit.rejections", telemetry.AttrErrorCode.String("INSUFFICIENT_INVENTORY")))
	assert.Equal(t, int64(1), sumOf(t, rm, "ledger.commit.rejections", telemetry.AttrErrorCode.String("internal")))
	assert.Equal(t, int64(1), sumOf(t, rm, "ledger.import.rows",
		telemetry.AttrRowKind.String("note"), telemetry.AttrOutcome.String("duplicate")))
}

// sumOf returns the counter value of the data point carrying exactly attrs
func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	want := attribute.NewSet(attrs...)
	for _, sm := range rm.ScopeMetrics {
		for _, mm := range sm.Metrics {
			if mm.Name != name {
				continue
			}
			sum, ok := mm.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Equals(&want) {
					return dp.Value
				}
			}
		}
	}
	t.Fatalf("no data point for %s %v", name, attrs)
	return 0
}
