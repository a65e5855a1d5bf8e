package upload

import (
	"context"
	"errors"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/lock"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/pkg/storage"
	"go.uber.org/zap"
)

// ExpiryReaper 把超时的 active/merging 会话标记为 expired 并回收分片，
// 同时删除超过保留期的终态会话记录
type ExpiryReaper interface {
	Sweep(ctx context.Context) (int, error)
}

type expiryReaper struct {
	*Deps
}

func NewExpiryReaper(deps *Deps) ExpiryReaper {
	return &expiryReaper{Deps: deps}
}

func (r *expiryReaper) batchSize() int {
	if r.Config.ReaperBatchSize > 0 {
		return r.Config.ReaperBatchSize
	}
	return 200
}

// Sweep 返回本轮标记为 expired 的会话数
func (r *expiryReaper) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	batch := r.batchSize()
	cleaned := 0
	var errs []error

	for {
		sessions, err := r.Sessions.ListLapsed(ctx, now, batch)
		if err != nil {
			errs = append(errs, err)
			break
		}
		progressed := 0
		for i := range sessions {
			ok, err := r.expire(ctx, &sessions[i])
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				progressed++
			}
		}
		cleaned += progressed
		// 剩下的都是正在合并而被跳过的会话
		if len(sessions) < batch || progressed == 0 {
			break
		}
	}

	purged, err := r.purge(ctx)
	if err != nil {
		errs = append(errs, err)
	}

	r.Metrics.Reaped(ctx, "expired", cleaned)
	r.Metrics.Reaped(ctx, "purged", purged)
	if cleaned > 0 || purged > 0 || len(errs) > 0 {
		logger.Info("Sweep: 清理完成",
			zap.Int("expired", cleaned), zap.Int("purged", purged), zap.Int("errors", len(errs)))
	}
	return cleaned, errors.Join(errs...)
}

// expire 与合并使用同一把锁，合并进行中的会话本轮跳过
func (r *expiryReaper) expire(ctx context.Context, s *models.UploadSession) (bool, error) {
	unlock, ok, err := r.Locker.TryLock(ctx, lock.MergeKey(s.UploadID))
	if err != nil {
		return false, err
	}
	if !ok {
		logger.Info("Sweep: 会话正在合并，跳过", zap.String("uploadID", s.UploadID))
		return false, nil
	}
	defer unlock()

	swapped, err := r.Sessions.CompareAndSwapStatus(ctx, s.UploadID,
		models.SourcesOf(models.UploadStatusExpired), models.UploadStatusExpired)
	if err != nil {
		return false, err
	}
	if !swapped {
		return false, nil
	}
	r.releaseChunks(ctx, s.UploadID)
	r.Metrics.SessionEvent(ctx, "expired")
	logger.Info("Sweep: 会话已过期",
		zap.String("uploadID", s.UploadID),
		zap.String("from", string(s.Status)),
		zap.Time("expiresAt", s.ExpiresAt))
	return true, nil
}

// purge 删除超过保留期的终态会话记录，顺带清理可能残留的对象
func (r *expiryReaper) purge(ctx context.Context) (int, error) {
	if r.Config.Retention <= 0 {
		return 0, nil
	}
	cutoff := r.now().Add(-r.Config.Retention)
	sessions, err := r.Sessions.ListTerminalBefore(ctx, cutoff, r.batchSize())
	if err != nil {
		return 0, err
	}
	purged := 0
	var errs []error
	for _, s := range sessions {
		if _, err := r.Chunks.DeleteByUploadID(ctx, s.UploadID); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Store.DeletePrefix(ctx, storage.ChunkPrefix(s.UploadID)); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Store.DeletePrefix(ctx, storage.StagingPrefix(s.UploadID)); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Sessions.Delete(ctx, s.UploadID); err != nil {
			errs = append(errs, err)
			continue
		}
		purged++
	}
	return purged, errors.Join(errs...)
}
