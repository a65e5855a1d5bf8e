package upload

import (
	"bytes"
	"context"
	"errors"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/checksum"
	"github.com/3Eeeecho/go-cms/internal/pkg/lock"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/pkg/storage"
	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
	"github.com/3Eeeecho/go-cms/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChunkStore 保存分片并校验长度与校验和
type ChunkStore interface {
	PutChunk(ctx context.Context, req *models.PutChunkRequest) (*models.Chunk, error)
	Exists(ctx context.Context, uploadID string, index int) (bool, error)
	List(ctx context.Context, uploadID string) ([]int, error)
}

type chunkStore struct {
	*Deps
}

func NewChunkStore(deps *Deps) ChunkStore {
	return &chunkStore{Deps: deps}
}

// PutChunk 写入一个分片。同一序号重复写入会覆盖旧数据，校验失败时旧数据保持不变。
// 分片先写到带版本号的新 key，元数据提交成功后才删除旧版本
func (c *chunkStore) PutChunk(ctx context.Context, req *models.PutChunkRequest) (*models.Chunk, error) {
	session, err := c.loadSession(ctx, req.UploadID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.UploadStatusActive {
		return nil, invalidState(session, "upload chunk to")
	}

	expected := session.ExpectedChunkSize(req.ChunkIndex)
	if expected < 0 {
		return nil, xerr.NewUploadError(xerr.KindInvalidArgument,
			"chunk index %d outside [0, %d)", req.ChunkIndex, session.TotalChunks)
	}
	size := int64(len(req.Payload))
	if size != expected {
		c.Metrics.ChunkStored(ctx, "bad_size", 0)
		return nil, xerr.NewUploadError(xerr.KindInvalidChunkSize,
			"chunk %d has %d bytes, expected %d", req.ChunkIndex, size, expected)
	}

	status := models.ChunkStatusReceived
	algo := checksum.Default
	var claimed checksum.Digest
	if req.ChunkHash != "" {
		claimed, err = checksum.Parse(req.ChunkHash)
		if err != nil {
			return nil, xerr.WrapUploadError(xerr.KindInvalidArgument, err, "invalid chunk checksum")
		}
		algo = claimed.Algorithm
	}
	actual, err := checksum.Sum(algo, req.Payload)
	if err != nil {
		return nil, xerr.WrapUploadError(xerr.KindInvalidArgument, err, "invalid chunk checksum")
	}
	if req.ChunkHash != "" {
		if !claimed.Matches(actual) {
			c.Metrics.ChunkStored(ctx, "checksum_mismatch", 0)
			logger.Warn("PutChunk: 分片校验和不匹配",
				zap.String("uploadID", req.UploadID),
				zap.Int("chunkIndex", req.ChunkIndex),
				zap.String("claimed", claimed.String()),
				zap.String("actual", actual.String()))
			return nil, xerr.NewUploadError(xerr.KindChecksumMismatch,
				"chunk %d checksum mismatch", req.ChunkIndex)
		}
		status = models.ChunkStatusVerified
	}

	if c.Config.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Config.ChunkTimeout)
		defer cancel()
	}

	unlock, err := c.Locker.Lock(ctx, lock.ChunkKey(req.UploadID, req.ChunkIndex))
	if err != nil {
		return nil, storageErr(err, "lock chunk %d", req.ChunkIndex)
	}
	defer unlock()

	key := storage.ChunkKey(req.UploadID, req.ChunkIndex, newUploadID())
	if _, err := c.Store.Put(ctx, key, bytes.NewReader(req.Payload), size, "application/octet-stream"); err != nil {
		logger.Error("PutChunk: 写入分片失败",
			zap.String("uploadID", req.UploadID), zap.Int("chunkIndex", req.ChunkIndex), zap.Error(err))
		return nil, storageErr(err, "store chunk %d", req.ChunkIndex)
	}

	chunk := &models.Chunk{
		UploadID:   req.UploadID,
		ChunkIndex: req.ChunkIndex,
		Size:       size,
		Checksum:   actual.String(),
		Status:     status,
		StoredAt:   key,
	}
	var previous string
	err = c.TM.WithTransaction(ctx, func(tx *gorm.DB) error {
		// 会话行上的条件更新与合并/取消的状态迁移互斥
		ok, err := c.Sessions.WithTx(tx).BumpRevision(ctx, req.UploadID)
		if err != nil {
			return err
		}
		if !ok {
			return errSessionNotActive
		}
		old, err := c.Chunks.WithTx(tx).Find(ctx, req.UploadID, req.ChunkIndex)
		switch {
		case err == nil:
			previous = old.StoredAt
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}
		return c.Chunks.WithTx(tx).Upsert(ctx, chunk)
	})
	if err != nil {
		if delErr := c.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logger.Warn("PutChunk: 清理未提交的分片失败", zap.String("key", key), zap.Error(delErr))
		}
		if errors.Is(err, errSessionNotActive) {
			cur, findErr := c.findSession(ctx, req.UploadID)
			if findErr != nil {
				return nil, findErr
			}
			return nil, invalidState(cur, "upload chunk to")
		}
		return nil, storageErr(err, "commit chunk %d", req.ChunkIndex)
	}

	if previous != "" && previous != key {
		if err := c.Store.Delete(context.WithoutCancel(ctx), previous); err != nil {
			logger.Warn("PutChunk: 删除旧版本分片失败", zap.String("key", previous), zap.Error(err))
		}
	}

	c.Metrics.ChunkStored(ctx, string(status), size)
	logger.Debug("PutChunk: 分片已保存",
		zap.String("uploadID", req.UploadID),
		zap.Int("chunkIndex", req.ChunkIndex),
		zap.Int64("size", size),
		zap.String("status", string(status)),
		zap.Bool("overwrite", previous != ""))
	return chunk, nil
}

func (c *chunkStore) Exists(ctx context.Context, uploadID string, index int) (bool, error) {
	if _, err := c.findSession(ctx, uploadID); err != nil {
		return false, err
	}
	chunk, err := c.Chunks.Find(ctx, uploadID, index)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, storageErr(err, "find chunk %d", index)
	}
	return chunk.Status.Accepted(), nil
}

// List 升序返回已接收的分片序号
func (c *chunkStore) List(ctx context.Context, uploadID string) ([]int, error) {
	if _, err := c.findSession(ctx, uploadID); err != nil {
		return nil, err
	}
	indices, err := c.Chunks.AcceptedIndices(ctx, uploadID)
	if err != nil {
		return nil, storageErr(err, "list chunks")
	}
	return indices, nil
}
