package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/3Eeeecho/go-cms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MediaRepository interface {
	// Register 按 upload_id 登记媒体资源。重复登记只刷新文件相关字段，ID 和 UUID 保持不变
	Register(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error)
	FindByUploadID(ctx context.Context, uploadID string) (*models.MediaAsset, error)
}

type mediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Register(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "upload_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"file_name", "mime_type", "size", "storage_key", "checksum", "metadata", "updated_at",
		}),
	}).Create(asset).Error
	if err != nil {
		return nil, fmt.Errorf("media repository: failed to register asset: %w", err)
	}
	return r.FindByUploadID(ctx, asset.UploadID)
}

func (r *mediaRepository) FindByUploadID(ctx context.Context, uploadID string) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	err := r.db.WithContext(ctx).Where("upload_id = ?", uploadID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("media asset %s: %w", uploadID, ErrNotFound)
		}
		return nil, fmt.Errorf("media repository: failed to find asset: %w", err)
	}
	return &asset, nil
}
