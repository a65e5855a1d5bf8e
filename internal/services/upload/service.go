package upload

import (
	"context"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
)

// UploadService 面向 HTTP 层的入口，负责会话归属校验并组合各组件
type UploadService interface {
	Init(ctx context.Context, ownerID uint64, req *models.UploadInitRequest) (*models.UploadInitResponse, error)
	PutChunk(ctx context.Context, ownerID uint64, req *models.PutChunkRequest) (*models.PutChunkResponse, error)
	Progress(ctx context.Context, ownerID uint64, uploadID string) (*models.UploadProgress, error)
	Get(ctx context.Context, ownerID uint64, uploadID string) (*models.UploadSession, error)
	Merge(ctx context.Context, ownerID uint64, uploadID string, meta models.FinalizeMetadata) (*models.MergeResponse, error)
	Cancel(ctx context.Context, ownerID uint64, uploadID string) error
	Sweep(ctx context.Context) (*models.SweepResponse, error)
}

type uploadService struct {
	deps     *Deps
	registry SessionRegistry
	chunks   ChunkStore
	progress ProgressTracker
	merger   MergeEngine
	reaper   ExpiryReaper
}

func NewUploadService(deps *Deps, hook FinalizeHook) UploadService {
	return &uploadService{
		deps:     deps,
		registry: NewSessionRegistry(deps),
		chunks:   NewChunkStore(deps),
		progress: NewProgressTracker(deps),
		merger:   NewMergeEngine(deps, hook),
		reaper:   NewExpiryReaper(deps),
	}
}

// authorize 会话不属于当前用户时按不存在处理，不暴露他人的 upload_id
func (s *uploadService) authorize(ctx context.Context, ownerID uint64, uploadID string) error {
	session, err := s.deps.findSession(ctx, uploadID)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return xerr.NewUploadError(xerr.KindNotFound, "upload session %s not found", uploadID)
	}
	return nil
}

func (s *uploadService) Init(ctx context.Context, ownerID uint64, req *models.UploadInitRequest) (*models.UploadInitResponse, error) {
	session, err := s.registry.Init(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}
	return &models.UploadInitResponse{
		UploadID:    session.UploadID,
		ChunkSize:   session.ChunkSize,
		TotalChunks: session.TotalChunks,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

func (s *uploadService) PutChunk(ctx context.Context, ownerID uint64, req *models.PutChunkRequest) (*models.PutChunkResponse, error) {
	if err := s.authorize(ctx, ownerID, req.UploadID); err != nil {
		return nil, err
	}
	chunk, err := s.chunks.PutChunk(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := &models.PutChunkResponse{
		ChunkIndex: chunk.ChunkIndex,
		ChunkSize:  chunk.Size,
		Status:     chunk.Status,
	}
	// 进度只是附带信息，读取失败不影响分片已经保存的事实
	if p, err := s.progress.Progress(ctx, req.UploadID); err == nil {
		resp.Progress = p.Progress
		resp.UploadedChunks = p.UploadedChunks
		resp.TotalChunks = p.TotalChunks
	}
	return resp, nil
}

func (s *uploadService) Progress(ctx context.Context, ownerID uint64, uploadID string) (*models.UploadProgress, error) {
	if err := s.authorize(ctx, ownerID, uploadID); err != nil {
		return nil, err
	}
	return s.progress.Progress(ctx, uploadID)
}

func (s *uploadService) Get(ctx context.Context, ownerID uint64, uploadID string) (*models.UploadSession, error) {
	if err := s.authorize(ctx, ownerID, uploadID); err != nil {
		return nil, err
	}
	return s.registry.Get(ctx, uploadID)
}

func (s *uploadService) Merge(ctx context.Context, ownerID uint64, uploadID string, meta models.FinalizeMetadata) (*models.MergeResponse, error) {
	if err := s.authorize(ctx, ownerID, uploadID); err != nil {
		return nil, err
	}
	return s.merger.Merge(ctx, uploadID, meta)
}

func (s *uploadService) Cancel(ctx context.Context, ownerID uint64, uploadID string) error {
	if err := s.authorize(ctx, ownerID, uploadID); err != nil {
		return err
	}
	return s.registry.Cancel(ctx, uploadID)
}

func (s *uploadService) Sweep(ctx context.Context) (*models.SweepResponse, error) {
	n, err := s.reaper.Sweep(ctx)
	if err != nil && n == 0 {
		return nil, storageErr(err, "sweep expired sessions")
	}
	return &models.SweepResponse{CleanedCount: n}, nil
}
