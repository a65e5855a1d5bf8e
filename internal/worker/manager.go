package worker

import (
	"context"
	"sync"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/services/upload"
)

// Manager 管理应用中所有后台 Worker 的生命周期
type Manager struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartAllWorkers 启动应用中所有定义的后台 Worker
func StartAllWorkers(ctx context.Context, cfg *config.UploadConfig, reaper upload.ExpiryReaper) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{cancel: cancel}

	// --- 启动过期会话清理 Worker ---
	reaperWorker := NewReaperWorker(reaper, cfg.ReaperInterval)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		reaperWorker.Start(ctx)
	}()

	logger.Info("所有后台工作进程已启动。")
	return m
}

// Stop 通知所有 Worker 退出并等待它们结束
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	logger.Info("所有后台工作进程已停止。")
}
