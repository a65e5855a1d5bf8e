package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/3Eeeecho/go-cms/internal/config"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("storage: object not found")

// BlobStore 定义了分片与成品文件共用的存储操作接口。
// 所有实现都必须保证 Put 的原子性：读者要么看到完整的新对象，要么看到旧对象。
type BlobStore interface {
	// Put 写入对象，size 为 -1 表示未知长度。返回对象的存储位置描述
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	// Open 打开对象用于读取，调用方负责关闭
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// Move 将 src 原子地发布为 dst，dst 上不会出现写了一半的对象
	Move(ctx context.Context, src, dst string) error
	// Delete 删除对象，对象不存在不算错误
	Delete(ctx context.Context, key string) error
	// DeletePrefix 删除 prefix 下的全部对象
	DeletePrefix(ctx context.Context, prefix string) error
	// Location 对象对外可见的位置（URL 或路径）
	Location(key string) string
}

// NewBlobStore 根据配置选择存储后端
func NewBlobStore(cfg *config.Config) (BlobStore, error) {
	switch cfg.Storage.Type {
	case "local", "":
		return NewLocalStore(cfg.Storage.LocalBasePath, cfg.Storage.PublicBaseURL)
	case "minio":
		return NewMinIOStore(&cfg.MinIO)
	case "aliyun_oss":
		return NewAliyunOSSStore(&cfg.AliyunOSS)
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Storage.Type)
	}
}

// ChunkPrefix 某个会话全部分片所在的前缀
func ChunkPrefix(uploadID string) string {
	return path.Join("chunks", uploadID) + "/"
}

// ChunkKey 分片对象的 key。同一序号的每次写入使用不同的 version，旧版本在提交后删除
func ChunkKey(uploadID string, index int, version string) string {
	return path.Join("chunks", uploadID, fmt.Sprintf("%06d-%s.chunk", index, version))
}

// StagingPrefix 合并过程中临时文件所在的前缀
func StagingPrefix(uploadID string) string {
	return path.Join("staging", uploadID) + "/"
}

// StagingKey 合并中的临时成品
func StagingKey(uploadID, attempt string) string {
	return path.Join("staging", uploadID, attempt+".part")
}

// ArtifactKey 已发布成品的 key
func ArtifactKey(id, fileName string) string {
	return path.Join("artifacts", id, SanitizeFileName(fileName))
}

// SanitizeFileName 去掉路径分隔符等不能出现在对象 key 中的字符
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "file"
	}
	return name
}

// validKey 拒绝越界的 key，避免本地存储写到 basePath 之外
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("storage: invalid key %q", key)
		}
	}
	return nil
}
