package upload

import (
	"context"

	"github.com/3Eeeecho/go-cms/internal/models"
)

// FinalizeHook 接管合并完成的文件。返回值原样作为 finalizedEntity 交给客户端。
// 返回错误时合并回滚，文件会被删除，会话回到 active 可以重试
type FinalizeHook interface {
	Finalize(ctx context.Context, session *models.UploadSession, artifact models.ArtifactRef, meta models.FinalizeMetadata) (any, error)
}

// FinalizeFunc 让普通函数实现 FinalizeHook
type FinalizeFunc func(ctx context.Context, session *models.UploadSession, artifact models.ArtifactRef, meta models.FinalizeMetadata) (any, error)

func (f FinalizeFunc) Finalize(ctx context.Context, session *models.UploadSession, artifact models.ArtifactRef, meta models.FinalizeMetadata) (any, error) {
	return f(ctx, session, artifact, meta)
}
