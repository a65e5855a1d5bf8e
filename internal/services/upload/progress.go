package upload

import (
	"context"
	"math"

	"github.com/3Eeeecho/go-cms/internal/models"
)

// ProgressTracker 只读的进度快照，不加锁
type ProgressTracker interface {
	Progress(ctx context.Context, uploadID string) (*models.UploadProgress, error)
}

type progressTracker struct {
	*Deps
}

func NewProgressTracker(deps *Deps) ProgressTracker {
	return &progressTracker{Deps: deps}
}

func (p *progressTracker) Progress(ctx context.Context, uploadID string) (*models.UploadProgress, error) {
	session, err := p.loadSession(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	out := &models.UploadProgress{
		UploadID:    uploadID,
		Status:      session.Status,
		TotalChunks: session.TotalChunks,
	}
	if session.Status == models.UploadStatusCompleted {
		// 合并后分片已删除
		out.UploadedChunks = session.TotalChunks
		out.Progress = 100
		out.MissingChunks = []int{}
		return out, nil
	}

	indices, err := p.Chunks.AcceptedIndices(ctx, uploadID)
	if err != nil {
		return nil, storageErr(err, "list chunks")
	}
	out.UploadedChunks = len(indices)
	out.MissingChunks = missingIndices(session.TotalChunks, indices)
	out.Progress = percentage(out.UploadedChunks, session.TotalChunks)
	return out, nil
}

func percentage(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(done)/float64(total)*10000) / 100
}
