package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestUploadMetricsRecords(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	m := NewUploadMetricsWith(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	m.SessionEvent(ctx, "init")
	m.ChunkStored(ctx, "verified", 4)
	m.ChunkStored(ctx, "verified", 6)
	m.MergeFinished(ctx, "completed", 0.5)
	m.Reaped(ctx, "expired", 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	got := map[string]int64{}
	for _, md := range rm.ScopeMetrics[0].Metrics {
		if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				got[md.Name] += dp.Value
			}
		}
	}
	require.Equal(t, int64(1), got["upload.sessions"])
	require.Equal(t, int64(2), got["upload.chunks"])
	require.Equal(t, int64(10), got["upload.chunk.bytes"])
	require.Equal(t, int64(1), got["upload.merges"])
	require.Equal(t, int64(2), got["upload.reaped"])
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *UploadMetrics
	m.SessionEvent(context.Background(), "init")
	m.MergeFinished(context.Background(), "failed", 1)
}
