package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("repository: record not found")

// SessionRepository 上传会话的持久化。所有状态变化都走条件更新，
// 返回的 bool 表示本次调用是否真正完成了迁移
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository
	Create(ctx context.Context, session *models.UploadSession) error
	FindByUploadID(ctx context.Context, uploadID string) (*models.UploadSession, error)
	CompareAndSwapStatus(ctx context.Context, uploadID string, from []models.UploadStatus, to models.UploadStatus) (bool, error)
	BumpRevision(ctx context.Context, uploadID string) (bool, error)
	MarkCompleted(ctx context.Context, uploadID, artifactKey string, at time.Time) (bool, error)
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]models.UploadSession, error)
	ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.UploadSession, error)
	Delete(ctx context.Context, uploadID string) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建一个新的 SessionRepository 实例
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) WithTx(tx *gorm.DB) SessionRepository {
	return &sessionRepository{db: tx}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.UploadSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		logger.Error("Create: failed to create upload session", zap.String("uploadID", session.UploadID), zap.Error(err))
		return fmt.Errorf("session repository: failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindByUploadID(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	var session models.UploadSession
	err := r.db.WithContext(ctx).Where("upload_id = ?", uploadID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", uploadID, ErrNotFound)
		}
		return nil, fmt.Errorf("session repository: failed to find session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) CompareAndSwapStatus(ctx context.Context, uploadID string, from []models.UploadStatus, to models.UploadStatus) (bool, error) {
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return false, fmt.Errorf("session repository: illegal transition %s -> %s", f, to)
		}
	}
	result := r.db.WithContext(ctx).Model(&models.UploadSession{}).
		Where("upload_id = ? AND status IN ?", uploadID, from).
		Update("status", to)
	if result.Error != nil {
		logger.Error("CompareAndSwapStatus: update failed",
			zap.String("uploadID", uploadID), zap.String("to", string(to)), zap.Error(result.Error))
		return false, fmt.Errorf("session repository: failed to update status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// BumpRevision 只有会话仍处于 active 时才会成功，用来把分片提交和状态迁移串行化
func (r *sessionRepository) BumpRevision(ctx context.Context, uploadID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.UploadSession{}).
		Where("upload_id = ? AND status = ?", uploadID, models.UploadStatusActive).
		Update("revision", gorm.Expr("revision + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("session repository: failed to bump revision: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *sessionRepository) MarkCompleted(ctx context.Context, uploadID, artifactKey string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.UploadSession{}).
		Where("upload_id = ? AND status = ?", uploadID, models.UploadStatusMerging).
		Updates(map[string]any{
			"status":       models.UploadStatusCompleted,
			"artifact_key": artifactKey,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("session repository: failed to mark completed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListLapsed 列出已过期但还没被清理的 active/merging 会话
func (r *sessionRepository) ListLapsed(ctx context.Context, now time.Time, limit int) ([]models.UploadSession, error) {
	var sessions []models.UploadSession
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", models.SourcesOf(models.UploadStatusExpired), now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("session repository: failed to list lapsed sessions: %w", err)
	}
	return sessions, nil
}

// ListTerminalBefore 列出 updated_at 早于 cutoff 的终态会话
func (r *sessionRepository) ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.UploadSession, error) {
	var sessions []models.UploadSession
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]models.UploadStatus{models.UploadStatusCompleted, models.UploadStatusCancelled, models.UploadStatusExpired}, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("session repository: failed to list terminal sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) Delete(ctx context.Context, uploadID string) error {
	if err := r.db.WithContext(ctx).Where("upload_id = ?", uploadID).Delete(&models.UploadSession{}).Error; err != nil {
		return fmt.Errorf("session repository: failed to delete session: %w", err)
	}
	return nil
}
