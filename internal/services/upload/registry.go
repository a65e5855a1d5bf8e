package upload

import (
	"context"
	"strings"
	"time"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/checksum"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/pkg/storage"
	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRegistry 管理上传会话的创建、查询与取消
type SessionRegistry interface {
	Init(ctx context.Context, ownerID uint64, req *models.UploadInitRequest) (*models.UploadSession, error)
	Get(ctx context.Context, uploadID string) (*models.UploadSession, error)
	Cancel(ctx context.Context, uploadID string) error
}

type sessionRegistry struct {
	*Deps
}

func NewSessionRegistry(deps *Deps) SessionRegistry {
	return &sessionRegistry{Deps: deps}
}

func newUploadID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (r *sessionRegistry) Init(ctx context.Context, ownerID uint64, req *models.UploadInitRequest) (*models.UploadSession, error) {
	cfg := r.Config
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" || len(fileName) > 255 {
		return nil, xerr.NewUploadError(xerr.KindInvalidArgument, "fileName must be 1-255 bytes")
	}
	if strings.TrimSpace(req.MimeType) == "" {
		return nil, xerr.NewUploadError(xerr.KindInvalidArgument, "mimeType is required")
	}
	if req.FileSize <= 0 {
		return nil, xerr.NewUploadError(xerr.KindInvalidArgument, "fileSize must be positive, got %d", req.FileSize)
	}
	if cfg.MaxFileSize > 0 && req.FileSize > cfg.MaxFileSize {
		return nil, xerr.NewUploadError(xerr.KindInvalidArgument, "fileSize %d exceeds limit %d", req.FileSize, cfg.MaxFileSize)
	}

	chunkSize := cfg.DefaultChunkSize
	if req.ChunkSize != nil {
		chunkSize = *req.ChunkSize
		if chunkSize < cfg.MinChunkSize || chunkSize > cfg.MaxChunkSize {
			return nil, xerr.NewUploadError(xerr.KindInvalidArgument,
				"chunkSize %d outside [%d, %d]", chunkSize, cfg.MinChunkSize, cfg.MaxChunkSize)
		}
	}

	ttl := cfg.DefaultTTL
	if req.ExpiryHours != nil {
		// 先比较小时数再相乘，避免 Duration 溢出绕过上限
		maxHours := int64(cfg.MaxTTL / time.Hour)
		if *req.ExpiryHours <= 0 || int64(*req.ExpiryHours) > maxHours {
			return nil, xerr.NewUploadError(xerr.KindInvalidArgument,
				"expiryHours %d outside (0, %d]", *req.ExpiryHours, maxHours)
		}
		ttl = time.Duration(*req.ExpiryHours) * time.Hour
	}

	var fileChecksum *string
	if req.FileHash != "" {
		d, err := checksum.Parse(req.FileHash)
		if err != nil {
			return nil, xerr.WrapUploadError(xerr.KindInvalidArgument, err, "invalid fileHash")
		}
		v := d.String()
		fileChecksum = &v
	}

	now := r.now()
	session := &models.UploadSession{
		UploadID:     newUploadID(),
		OwnerID:      ownerID,
		SiteID:       req.SiteID,
		FileName:     storage.SanitizeFileName(fileName),
		DeclaredSize: req.FileSize,
		MimeType:     req.MimeType,
		ChunkSize:    chunkSize,
		TotalChunks:  models.TotalChunksFor(req.FileSize, chunkSize),
		FileChecksum: fileChecksum,
		Status:       models.UploadStatusActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := r.Sessions.Create(ctx, session); err != nil {
		return nil, storageErr(err, "create session")
	}

	r.Metrics.SessionEvent(ctx, "init")
	logger.Info("Init: 上传会话已创建",
		zap.String("uploadID", session.UploadID),
		zap.Uint64("ownerID", ownerID),
		zap.Int64("declaredSize", session.DeclaredSize),
		zap.Int64("chunkSize", chunkSize),
		zap.Int("totalChunks", session.TotalChunks),
		zap.Time("expiresAt", session.ExpiresAt))
	return session, nil
}

func (r *sessionRegistry) Get(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	return r.loadSession(ctx, uploadID)
}

// Cancel 取消仍处于 active 的会话并删除其分片。已取消或已过期的会话重复取消直接成功
func (r *sessionRegistry) Cancel(ctx context.Context, uploadID string) error {
	s, err := r.findSession(ctx, uploadID)
	if err != nil {
		return err
	}
	if s.LapsedAt(r.now()) {
		// 已过期的会话与 Get 的结论保持一致，状态留给清理任务改为 expired
		return nil
	}

	switch s.Status {
	case models.UploadStatusCancelled, models.UploadStatusExpired:
		return nil
	case models.UploadStatusActive:
	default:
		return invalidState(s, "cancel")
	}

	ok, err := r.Sessions.CompareAndSwapStatus(ctx, uploadID,
		[]models.UploadStatus{models.UploadStatusActive}, models.UploadStatusCancelled)
	if err != nil {
		return storageErr(err, "cancel session %s", uploadID)
	}
	if !ok {
		// 与合并或清理并发，以最新状态为准
		cur, err := r.findSession(ctx, uploadID)
		if err != nil {
			return err
		}
		if cur.Status == models.UploadStatusCancelled || cur.Status == models.UploadStatusExpired {
			return nil
		}
		return invalidState(cur, "cancel")
	}

	r.releaseChunks(context.WithoutCancel(ctx), uploadID)
	r.Metrics.SessionEvent(ctx, "cancelled")
	logger.Info("Cancel: 上传会话已取消", zap.String("uploadID", uploadID))
	return nil
}

// releaseChunks 删除会话的分片记录和对象，失败只记录日志，保留期清理会再次处理
func (d *Deps) releaseChunks(ctx context.Context, uploadID string) {
	if _, err := d.Chunks.DeleteByUploadID(ctx, uploadID); err != nil {
		logger.Warn("删除分片记录失败", zap.String("uploadID", uploadID), zap.Error(err))
	}
	if err := d.Store.DeletePrefix(ctx, storage.ChunkPrefix(uploadID)); err != nil {
		logger.Warn("删除分片对象失败", zap.String("uploadID", uploadID), zap.Error(err))
	}
	if err := d.Store.DeletePrefix(ctx, storage.StagingPrefix(uploadID)); err != nil {
		logger.Warn("删除合并临时文件失败", zap.String("uploadID", uploadID), zap.Error(err))
	}
}
