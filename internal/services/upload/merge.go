package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/checksum"
	"github.com/3Eeeecho/go-cms/internal/pkg/lock"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/pkg/storage"
	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MergeEngine 按序号拼接分片、校验并发布成品，然后交给 FinalizeHook
type MergeEngine interface {
	Merge(ctx context.Context, uploadID string, meta models.FinalizeMetadata) (*models.MergeResponse, error)
}

type mergeEngine struct {
	*Deps
	hook FinalizeHook
}

func NewMergeEngine(deps *Deps, hook FinalizeHook) MergeEngine {
	return &mergeEngine{Deps: deps, hook: hook}
}

// corruptChunkError 存储中的分片与记录不一致
type corruptChunkError struct {
	index  int
	reason string
}

func (e *corruptChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %s", e.index, e.reason)
}

var (
	errStagingAborted  = errors.New("upload: staging write aborted")
	errSessionNotMerge = errors.New("upload: session left merging state")
)

func (m *mergeEngine) Merge(ctx context.Context, uploadID string, meta models.FinalizeMetadata) (*models.MergeResponse, error) {
	start := time.Now()
	unlock, ok, err := m.Locker.TryLock(ctx, lock.MergeKey(uploadID))
	if err != nil {
		return nil, storageErr(err, "acquire merge lock")
	}
	if !ok {
		return nil, xerr.NewUploadError(xerr.KindAlreadyMerging, "upload %s is already being merged", uploadID)
	}
	defer unlock()

	session, err := m.loadSession(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case models.UploadStatusActive:
		ok, err := m.Sessions.CompareAndSwapStatus(ctx, uploadID,
			[]models.UploadStatus{models.UploadStatusActive}, models.UploadStatusMerging)
		if err != nil {
			return nil, storageErr(err, "start merge")
		}
		if !ok {
			cur, err := m.findSession(ctx, uploadID)
			if err != nil {
				return nil, err
			}
			return nil, invalidState(cur, "merge")
		}
		session.Status = models.UploadStatusMerging
	case models.UploadStatusMerging:
		// 持有锁时仍是 merging，说明上一次合并的进程中途退出
		logger.Warn("Merge: 接管中断的合并", zap.String("uploadID", uploadID))
	default:
		return nil, invalidState(session, "merge")
	}
	logger.Info("Merge: 开始合并", zap.String("uploadID", uploadID), zap.Int("totalChunks", session.TotalChunks))

	mctx := ctx
	if m.Config.MergeTimeout > 0 {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(ctx, m.Config.MergeTimeout)
		defer cancel()
	}

	resp, err := m.run(mctx, session, meta)
	outcome := "completed"
	if err != nil {
		outcome = string(xerr.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		m.revert(ctx, uploadID)
		logger.Warn("Merge: 合并失败，会话已回到 active",
			zap.String("uploadID", uploadID), zap.String("kind", outcome), zap.Error(err))
	} else {
		m.Metrics.SessionEvent(ctx, "completed")
		logger.Info("Merge: 合并完成",
			zap.String("uploadID", uploadID),
			zap.String("artifact", resp.Artifact.Key),
			zap.Int64("size", resp.Artifact.Size),
			zap.Duration("elapsed", time.Since(start)))
	}
	m.Metrics.MergeFinished(ctx, outcome, time.Since(start).Seconds())
	return resp, err
}

func (m *mergeEngine) revert(ctx context.Context, uploadID string) {
	ok, err := m.Sessions.CompareAndSwapStatus(context.WithoutCancel(ctx), uploadID,
		[]models.UploadStatus{models.UploadStatusMerging}, models.UploadStatusActive)
	if err != nil || !ok {
		logger.Error("Merge: 回滚会话状态失败", zap.String("uploadID", uploadID), zap.Bool("swapped", ok), zap.Error(err))
	}
}

func (m *mergeEngine) deleteQuiet(ctx context.Context, key string) {
	if err := m.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("Merge: 删除对象失败", zap.String("key", key), zap.Error(err))
	}
}

func (m *mergeEngine) run(ctx context.Context, session *models.UploadSession, meta models.FinalizeMetadata) (*models.MergeResponse, error) {
	uploadID := session.UploadID
	chunks, err := m.Chunks.ListAccepted(ctx, uploadID)
	if err != nil {
		return nil, storageErr(err, "list chunks")
	}
	have := make([]int, len(chunks))
	for i, c := range chunks {
		have[i] = c.ChunkIndex
	}
	if missing := missingIndices(session.TotalChunks, have); len(missing) > 0 {
		return nil, xerr.Incomplete(missing)
	}

	fileAlgo := checksum.Default
	var declared *checksum.Digest
	if session.FileChecksum != nil {
		d, err := checksum.Parse(*session.FileChecksum)
		if err != nil {
			return nil, storageErr(err, "parse declared file checksum")
		}
		declared = &d
		fileAlgo = d.Algorithm
	}
	fileHasher, err := checksum.NewHasher(fileAlgo)
	if err != nil {
		return nil, storageErr(err, "file hasher")
	}

	stagingKey := storage.StagingKey(uploadID, newUploadID())
	pr, pw := io.Pipe()
	streamDone := make(chan error, 1)
	go func() {
		err := m.stream(ctx, session, chunks, io.MultiWriter(pw, fileHasher))
		pw.CloseWithError(err)
		streamDone <- err
	}()
	_, putErr := m.Store.Put(ctx, stagingKey, pr, session.DeclaredSize, session.MimeType)
	pr.CloseWithError(errStagingAborted)
	streamErr := <-streamDone

	if streamErr != nil {
		m.deleteQuiet(ctx, stagingKey)
		var bad *corruptChunkError
		if errors.As(streamErr, &bad) {
			if err := m.Chunks.MarkRejected(context.WithoutCancel(ctx), uploadID, bad.index); err != nil {
				logger.Error("Merge: 标记损坏分片失败", zap.String("uploadID", uploadID), zap.Int("chunkIndex", bad.index), zap.Error(err))
			}
			logger.Warn("Merge: 分片数据损坏，需要重传",
				zap.String("uploadID", uploadID), zap.Int("chunkIndex", bad.index), zap.String("reason", bad.reason))
			return nil, xerr.WrapUploadError(xerr.KindIntegrityMismatch, streamErr, "stored chunk failed verification")
		}
		if errors.Is(streamErr, errStagingAborted) && putErr != nil {
			return nil, storageErr(putErr, "write staging artifact")
		}
		return nil, storageErr(streamErr, "read chunks")
	}
	if putErr != nil {
		return nil, storageErr(putErr, "write staging artifact")
	}

	if fileHasher.Size() != session.DeclaredSize {
		m.deleteQuiet(ctx, stagingKey)
		return nil, xerr.NewUploadError(xerr.KindIntegrityMismatch,
			"assembled %d bytes, declared %d", fileHasher.Size(), session.DeclaredSize)
	}
	digest := fileHasher.Digest()
	if declared != nil && !declared.Matches(digest) {
		m.deleteQuiet(ctx, stagingKey)
		return nil, xerr.NewUploadError(xerr.KindIntegrityMismatch,
			"file checksum mismatch: declared %s, got %s", declared.String(), digest.String())
	}

	artifactKey := storage.ArtifactKey(newUploadID(), session.FileName)
	if err := m.Store.Move(ctx, stagingKey, artifactKey); err != nil {
		m.deleteQuiet(ctx, stagingKey)
		return nil, storageErr(err, "publish artifact")
	}
	artifact := models.ArtifactRef{
		Key:         artifactKey,
		Location:    m.Store.Location(artifactKey),
		Size:        session.DeclaredSize,
		Checksum:    digest.String(),
		ContentType: session.MimeType,
	}

	entity, err := m.hook.Finalize(ctx, session, artifact, meta)
	if err != nil {
		m.deleteQuiet(ctx, artifactKey)
		return nil, xerr.WrapUploadError(xerr.KindFinalizeFailed, err, "finalize hook failed")
	}

	completedAt := m.now()
	err = m.TM.WithTransaction(ctx, func(tx *gorm.DB) error {
		ok, err := m.Sessions.WithTx(tx).MarkCompleted(ctx, uploadID, artifactKey, completedAt)
		if err != nil {
			return err
		}
		if !ok {
			return errSessionNotMerge
		}
		_, err = m.Chunks.WithTx(tx).DeleteByUploadID(ctx, uploadID)
		return err
	})
	if err != nil {
		// 媒体库已经登记了这个文件，不能删除。重试合并时登记按 upload_id 覆盖 storage_key
		logger.Error("Merge: 登记成功但提交会话失败，保留已发布文件",
			zap.String("uploadID", uploadID), zap.String("artifact", artifactKey), zap.Error(err))
		return nil, storageErr(err, "commit merge")
	}

	bg := context.WithoutCancel(ctx)
	if err := m.Store.DeletePrefix(bg, storage.ChunkPrefix(uploadID)); err != nil {
		logger.Warn("Merge: 删除分片对象失败", zap.String("uploadID", uploadID), zap.Error(err))
	}
	if err := m.Store.DeletePrefix(bg, storage.StagingPrefix(uploadID)); err != nil {
		logger.Warn("Merge: 删除合并临时文件失败", zap.String("uploadID", uploadID), zap.Error(err))
	}

	return &models.MergeResponse{Artifact: artifact, FinalizedEntity: entity}, nil
}

// stream 严格按序号升序写出分片，每个分片都与记录的长度和摘要比对
func (m *mergeEngine) stream(ctx context.Context, session *models.UploadSession, chunks []models.Chunk, w io.Writer) error {
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Size != session.ExpectedChunkSize(c.ChunkIndex) {
			return &corruptChunkError{index: c.ChunkIndex, reason: "recorded size does not match layout"}
		}
		recorded, err := checksum.Parse(c.Checksum)
		if err != nil {
			return &corruptChunkError{index: c.ChunkIndex, reason: "recorded checksum unreadable"}
		}
		h, err := checksum.NewHasher(recorded.Algorithm)
		if err != nil {
			return err
		}

		rc, err := m.Store.Open(ctx, c.StoredAt)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return &corruptChunkError{index: c.ChunkIndex, reason: "stored object missing"}
			}
			return err
		}
		n, err := io.Copy(io.MultiWriter(w, h), io.LimitReader(rc, c.Size+1))
		rc.Close()
		if err != nil {
			return err
		}
		if n != c.Size {
			return &corruptChunkError{index: c.ChunkIndex, reason: fmt.Sprintf("stored %d bytes, recorded %d", n, c.Size)}
		}
		if !recorded.Matches(h.Digest()) {
			return &corruptChunkError{index: c.ChunkIndex, reason: "stored bytes do not match recorded checksum"}
		}
	}
	return nil
}
