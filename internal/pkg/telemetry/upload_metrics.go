package telemetry

import (
	"context"

	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/3Eeeecho/go-cms/upload"

// UploadMetrics 上传流水线的计数器。零值可用，所有方法都是空操作
type UploadMetrics struct {
	sessions     metric.Int64Counter
	chunks       metric.Int64Counter
	chunkBytes   metric.Int64Counter
	merges       metric.Int64Counter
	mergeSeconds metric.Float64Histogram
	reaped       metric.Int64Counter
}

// NewUploadMetrics 从全局 MeterProvider 创建计数器
func NewUploadMetrics() *UploadMetrics {
	return NewUploadMetricsWith(otel.GetMeterProvider())
}

func NewUploadMetricsWith(mp metric.MeterProvider) *UploadMetrics {
	m := mp.Meter(meterName)
	um := &UploadMetrics{}
	var err error
	if um.sessions, err = m.Int64Counter("upload.sessions",
		metric.WithDescription("Upload sessions by lifecycle event")); err != nil {
		logger.Warn("创建指标失败", zap.String("metric", "upload.sessions"), zap.Error(err))
	}
	if um.chunks, err = m.Int64Counter("upload.chunks",
		metric.WithDescription("Chunk writes by outcome")); err != nil {
		logger.Warn("创建指标失败", zap.String("metric", "upload.chunks"), zap.Error(err))
	}
	if um.chunkBytes, err = m.Int64Counter("upload.chunk.bytes",
		metric.WithUnit("By")); err != nil {
		logger.Warn("创建指标失败", zap.String("metric", "upload.chunk.bytes"), zap.Error(err))
	}
	if um.merges, err = m.Int64Counter("upload.merges",
		metric.WithDescription("Merge attempts by outcome")); err != nil {
		logger.Warn("创建指标失败", zap.String("metric", "upload.merges"), zap.Error(err))
	}
	if um.mergeSeconds, err = m.Float64Histogram("upload.merge.duration",
		metric.WithUnit("s")); err != nil {
		logger.Warn("创建指标失败", zap.String("metric", "upload.merge.duration"), zap.Error(err))
	}
	if um.reaped, err = m.Int64Counter("upload.reaped",
		metric.WithDescription("Sessions expired or purged by the reaper")); err != nil {
		logger.Warn("创建指标失败", zap.String("metric", "upload.reaped"), zap.Error(err))
	}
	return um
}

func outcome(o string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("outcome", o))
}

func (m *UploadMetrics) SessionEvent(ctx context.Context, event string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func (m *UploadMetrics) ChunkStored(ctx context.Context, o string, size int64) {
	if m == nil || m.chunks == nil {
		return
	}
	m.chunks.Add(ctx, 1, outcome(o))
	if size > 0 && m.chunkBytes != nil {
		m.chunkBytes.Add(ctx, size)
	}
}

func (m *UploadMetrics) MergeFinished(ctx context.Context, o string, seconds float64) {
	if m == nil || m.merges == nil {
		return
	}
	m.merges.Add(ctx, 1, outcome(o))
	if m.mergeSeconds != nil {
		m.mergeSeconds.Record(ctx, seconds, outcome(o))
	}
}

func (m *UploadMetrics) Reaped(ctx context.Context, kind string, n int) {
	if m == nil || m.reaped == nil || n == 0 {
		return
	}
	m.reaped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}
