package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChunkRepository interface {
	WithTx(tx *gorm.DB) ChunkRepository
	Upsert(ctx context.Context, chunk *models.Chunk) error
	Find(ctx context.Context, uploadID string, index int) (*models.Chunk, error)
	ListAccepted(ctx context.Context, uploadID string) ([]models.Chunk, error)
	AcceptedIndices(ctx context.Context, uploadID string) ([]int, error)
	MarkRejected(ctx context.Context, uploadID string, index int) error
	DeleteByUploadID(ctx context.Context, uploadID string) (int64, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

func (r *chunkRepository) WithTx(tx *gorm.DB) ChunkRepository {
	return &chunkRepository{db: tx}
}

// Upsert 保存分片记录，(upload_id, chunk_index) 已存在时原地覆盖
func (r *chunkRepository) Upsert(ctx context.Context, chunk *models.Chunk) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "upload_id"}, {Name: "chunk_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"size", "checksum", "status", "stored_at", "updated_at"}),
	}).Create(chunk).Error
	if err != nil {
		logger.Error("Upsert: failed to save chunk record",
			zap.String("uploadID", chunk.UploadID),
			zap.Int("chunkIndex", chunk.ChunkIndex),
			zap.Error(err))
		return fmt.Errorf("chunk repository: failed to save chunk: %w", err)
	}
	return nil
}

func (r *chunkRepository) Find(ctx context.Context, uploadID string, index int) (*models.Chunk, error) {
	var chunk models.Chunk
	err := r.db.WithContext(ctx).Where("upload_id = ? AND chunk_index = ?", uploadID, index).First(&chunk).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chunk %s/%d: %w", uploadID, index, ErrNotFound)
		}
		return nil, fmt.Errorf("chunk repository: failed to find chunk: %w", err)
	}
	return &chunk, nil
}

// ListAccepted 按序号升序返回可参与合并的分片
func (r *chunkRepository) ListAccepted(ctx context.Context, uploadID string) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := r.db.WithContext(ctx).
		Where("upload_id = ? AND status IN ?", uploadID, []models.ChunkStatus{models.ChunkStatusReceived, models.ChunkStatusVerified}).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("chunk repository: failed to list chunks: %w", err)
	}
	return chunks, nil
}

func (r *chunkRepository) AcceptedIndices(ctx context.Context, uploadID string) ([]int, error) {
	var indices []int
	err := r.db.WithContext(ctx).Model(&models.Chunk{}).
		Where("upload_id = ? AND status IN ?", uploadID, []models.ChunkStatus{models.ChunkStatusReceived, models.ChunkStatusVerified}).
		Order("chunk_index ASC").
		Pluck("chunk_index", &indices).Error
	if err != nil {
		return nil, fmt.Errorf("chunk repository: failed to list chunk indices: %w", err)
	}
	return indices, nil
}

func (r *chunkRepository) MarkRejected(ctx context.Context, uploadID string, index int) error {
	err := r.db.WithContext(ctx).Model(&models.Chunk{}).
		Where("upload_id = ? AND chunk_index = ?", uploadID, index).
		Update("status", models.ChunkStatusRejected).Error
	if err != nil {
		return fmt.Errorf("chunk repository: failed to reject chunk: %w", err)
	}
	return nil
}

func (r *chunkRepository) DeleteByUploadID(ctx context.Context, uploadID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("upload_id = ?", uploadID).Delete(&models.Chunk{})
	if result.Error != nil {
		logger.Error("DeleteByUploadID: failed to delete chunk records",
			zap.String("uploadID", uploadID), zap.Error(result.Error))
		return 0, fmt.Errorf("chunk repository: failed to delete chunks: %w", result.Error)
	}
	return result.RowsAffected, nil
}
