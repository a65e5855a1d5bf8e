package media

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/pkg/mq"
	"github.com/3Eeeecho/go-cms/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Registrar 把合并完成的文件登记为媒体资源，并通知下游
type Registrar struct {
	repo      repositories.MediaRepository
	publisher mq.Publisher // 可为空
	queue     string
}

func NewRegistrar(repo repositories.MediaRepository, publisher mq.Publisher, queue string) *Registrar {
	return &Registrar{repo: repo, publisher: publisher, queue: queue}
}

// Finalize 在同一个 upload_id 上重复调用是幂等的
func (r *Registrar) Finalize(ctx context.Context, session *models.UploadSession, artifact models.ArtifactRef, meta models.FinalizeMetadata) (any, error) {
	asset := &models.MediaAsset{
		UUID:       uuid.NewString(),
		UploadID:   session.UploadID,
		OwnerID:    session.OwnerID,
		SiteID:     session.SiteID,
		Title:      strings.TrimSuffix(session.FileName, path.Ext(session.FileName)),
		FileName:   session.FileName,
		MimeType:   artifact.ContentType,
		Size:       artifact.Size,
		StorageKey: artifact.Key,
		Checksum:   artifact.Checksum,
		Visibility: "private",
	}

	if raw, ok := meta["title"]; ok {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil {
			return nil, fmt.Errorf("media: title must be a string: %w", err)
		}
		if title = strings.TrimSpace(title); title != "" {
			asset.Title = title
		}
	}
	if raw, ok := meta["visibility"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil || (v != "public" && v != "private") {
			return nil, fmt.Errorf("media: visibility must be \"public\" or \"private\"")
		}
		asset.Visibility = v
	}
	if raw, ok := meta["categories"]; ok {
		var categories []string
		if err := json.Unmarshal(raw, &categories); err != nil {
			return nil, fmt.Errorf("media: categories must be a string array: %w", err)
		}
		asset.Categories = datatypes.JSON(raw)
	}
	if len(meta) > 0 {
		data, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("media: encode metadata: %w", err)
		}
		asset.Metadata = datatypes.JSON(data)
	}

	saved, err := r.repo.Register(ctx, asset)
	if err != nil {
		return nil, err
	}
	logger.Info("媒体资源已登记",
		zap.String("uploadID", session.UploadID),
		zap.Uint64("assetID", saved.ID),
		zap.String("storageKey", saved.StorageKey))

	r.publish(saved)
	return saved, nil
}

// publish 通知失败不影响登记结果
func (r *Registrar) publish(asset *models.MediaAsset) {
	if r.publisher == nil {
		return
	}
	event := models.UploadFinalizedEvent{
		AssetID:     asset.ID,
		AssetUUID:   asset.UUID,
		UploadID:    asset.UploadID,
		OwnerID:     asset.OwnerID,
		SiteID:      asset.SiteID,
		StorageKey:  asset.StorageKey,
		MimeType:    asset.MimeType,
		Size:        asset.Size,
		FinalizedAt: time.Now().UTC(),
	}
	if err := r.publisher.PublishJSON(r.queue, event); err != nil {
		logger.Error("发布媒体登记事件失败",
			zap.String("uploadID", asset.UploadID), zap.String("queue", r.queue), zap.Error(err))
	}
}
