package telemetry

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics_Records(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	m.Polls.Add(ctx, 1, Loop("messages"))
	m.Polls.Add(ctx, 1, Loop("messages"))
	m.DecryptFailures.Add(ctx, 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok, md.Name)
			for _, dp := range sum.DataPoints {
				totals[md.Name] += dp.Value
			}
		}
	}
	require.Equal(t, int64(2), totals["argoya.sync.polls"])
	require.Equal(t, int64(3), totals["argoya.sync.decrypt_failures"])
}

func TestNop(t *testing.T) {
	m := Nop()
	require.NotNil(t, m.Sends)
	m.Sends.Add(context.Background(), 1)

	m, shutdown, err := Setup(Config{})
	require.NoError(t, err)
	require.NotNil(t, m)
	require.NoError(t, shutdown(context.Background()))
}

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() error { c.closed = true; return nil }

func TestSetup_ExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	closer := &closeRecorder{}

	m, shutdown, err := setup(&buf, time.Hour, closer)
	require.NoError(t, err)
	m.Sends.Add(context.Background(), 1)

	require.NoError(t, shutdown(context.Background()))
	require.True(t, closer.closed)
	require.Contains(t, buf.String(), "argoya.sync.sends")
}

var _ io.Closer = (*closeRecorder)(nil)
