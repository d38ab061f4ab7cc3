package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
)

func TestLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{ServiceName: "lotledger-test"}, nil)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)
	bridged := lp.Bridge(base, zapcore.InfoLevel)
	assert.Same(t, base, bridged)

	bridged.Info("received", zap.String("sku", "BOLT"))
	assert.Equal(t, 1, logs.Len())
	assert.False(t, lp.Core(zapcore.DebugLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestLoggerProvider_EnabledFiltersLevel(t *testing.T) {
	ctx := context.Background()
	// the gRPC client connects lazily, so no collector is needed
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "lotledger-test",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Shutdown(ctx) })
	assert.True(t, lp.IsEnabled())

	core := lp.Core(zapcore.WarnLevel)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	assert.False(t, core.With([]zapcore.Field{zap.String("lot", "L1")}).Enabled(zapcore.DebugLevel))

	base := zap.NewNop()
	assert.NotSame(t, base, lp.Bridge(base, zapcore.WarnLevel))
}

func TestLogsConfigFrom(t *testing.T) {
	lc := telemetry.LogsConfigFrom(config.TelemetryConfig{
		LogsEnabled:       true,
		CollectorEndpoint: "otel:4317",
		ServiceName:       "lotledger",
	})
	assert.True(t, lc.Enabled)
	assert.Equal(t, "otel:4317", lc.CollectorEndpoint)
	assert.Equal(t, "lotledger", lc.ServiceName)
}
