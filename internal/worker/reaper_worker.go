package worker

import (
	"context"
	"time"

	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/services/upload"
	"go.uber.org/zap"
)

// ReaperWorker 按固定间隔执行过期清理
type ReaperWorker struct {
	reaper   upload.ExpiryReaper
	interval time.Duration
}

func NewReaperWorker(reaper upload.ExpiryReaper, interval time.Duration) *ReaperWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ReaperWorker{reaper: reaper, interval: interval}
}

// Start 阻塞运行直到 ctx 结束。启动时先清理一次
func (w *ReaperWorker) Start(ctx context.Context) {
	logger.Info("Starting expiry reaper worker...", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Expiry reaper worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ReaperWorker) runOnce(ctx context.Context) {
	n, err := w.reaper.Sweep(ctx)
	if err != nil {
		logger.Error("过期会话清理出错", zap.Int("expired", n), zap.Error(err))
	}
}
