package upload

import (
	"context"
	"errors"
	"time"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/lock"
	"github.com/3Eeeecho/go-cms/internal/pkg/storage"
	"github.com/3Eeeecho/go-cms/internal/pkg/telemetry"
	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
	"github.com/3Eeeecho/go-cms/internal/repositories"
)

// Deps 上传流水线各组件共享的依赖
type Deps struct {
	Config   config.UploadConfig
	Sessions repositories.SessionRepository
	Chunks   repositories.ChunkRepository
	TM       repositories.TransactionManager
	Store    storage.BlobStore
	Locker   lock.KeyedLocker
	Metrics  *telemetry.UploadMetrics
	Clock    func() time.Time // 为空时使用 time.Now
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

// findSession 读取会话，不做过期判断
func (d *Deps) findSession(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	s, err := d.Sessions.FindByUploadID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, xerr.NewUploadError(xerr.KindNotFound, "upload session %s not found", uploadID)
		}
		return nil, storageErr(err, "load session %s", uploadID)
	}
	return s, nil
}

// loadSession 读取会话并做惰性过期判断，结论与清理任务一致
func (d *Deps) loadSession(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	s, err := d.findSession(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if s.LapsedAt(d.now()) {
		return nil, xerr.NewUploadError(xerr.KindExpired, "upload session %s expired at %s",
			uploadID, s.ExpiresAt.Format(time.RFC3339))
	}
	return s, nil
}

func storageErr(err error, format string, args ...any) error {
	var ue *xerr.UploadError
	if errors.As(err, &ue) {
		return err
	}
	return xerr.WrapUploadError(xerr.KindStorageError, err, format, args...)
}

func invalidState(s *models.UploadSession, op string) error {
	return xerr.NewUploadError(xerr.KindInvalidState, "cannot %s upload %s in status %s", op, s.UploadID, s.Status)
}

// missingIndices 返回 [0,total) 中不在 have 里的序号，have 须升序
func missingIndices(total int, have []int) []int {
	missing := make([]int, 0)
	j := 0
	for i := 0; i < total; i++ {
		for j < len(have) && have[j] < i {
			j++
		}
		if j < len(have) && have[j] == i {
			continue
		}
		missing = append(missing, i)
	}
	return missing
}

var errSessionNotActive = errors.New("upload: session is no longer active")
