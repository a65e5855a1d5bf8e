package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/pkg/storage"
	"go.uber.org/zap"
)

type bucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

// InitStorage 根据 storage.type 初始化存储后端，对象存储会确保存储桶存在
func InitStorage(cfg *config.Config) (storage.BlobStore, error) {
	store, err := storage.NewBlobStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化存储服务失败: %w", err)
	}

	if b, ok := store.(bucketEnsurer); ok {
		// 为外部调用使用带超时的上下文
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}
	logger.Info("存储服务已选择并初始化", zap.String("type", cfg.Storage.Type))
	return store, nil
}
