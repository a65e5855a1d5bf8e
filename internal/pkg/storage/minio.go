package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOStore MinIO 存储。单次 PutObject 在完成前对读者不可见，天然满足原子写
type MinIOStore struct {
	client *minio.Client
	cfg    *config.MinIOConfig // MinIO的配置信息
}

// NewMinIOStore 创建并返回一个 MinIOStore 实例
func NewMinIOStore(cfg *config.MinIOConfig) (*MinIOStore, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL, // 根据配置决定是否使用 HTTPS
	})
	if err != nil {
		logger.Error("初始化 MinIO 客户端失败", zap.Error(err))
		return nil, fmt.Errorf("无法初始化 MinIO 客户端: %w", err)
	}

	logger.Info("MinIO 客户端初始化成功", zap.String("endpoint", cfg.Endpoint))
	return &MinIOStore{client: minioClient, cfg: cfg}, nil
}

// EnsureBucket 检查存储桶是否存在，不存在则创建
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.BucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶存在性失败: %w", err)
	}
	if exists {
		logger.Info("MinIO 存储桶已存在", zap.String("bucket", s.cfg.BucketName))
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
	}
	logger.Info("MinIO 存储桶创建成功", zap.String("bucket", s.cfg.BucketName))
	return nil
}

func (s *MinIOStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.PutObject(ctx, s.cfg.BucketName, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("MinIO 上传文件失败: %w", err)
	}
	if size >= 0 && info.Size != size {
		_ = s.Delete(ctx, key)
		return "", fmt.Errorf("MinIO 上传长度不符: want %d, got %d", size, info.Size)
	}
	return s.cfg.BucketName + "/" + info.Key, nil
}

func (s *MinIOStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("MinIO 获取文件失败: %w", err)
	}
	// GetObject 是惰性的，Stat 一次以便尽早发现对象不存在
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("MinIO 获取文件信息失败: %w", err)
	}
	return obj, nil
}

func (s *MinIOStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.cfg.BucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, fmt.Errorf("MinIO 检查文件失败: %w", err)
}

// Move 服务端拷贝后删除源对象。拷贝在服务端一次完成，dst 不会出现半个对象
func (s *MinIOStore) Move(ctx context.Context, src, dst string) error {
	if err := validKey(dst); err != nil {
		return err
	}
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.cfg.BucketName, Object: dst},
		minio.CopySrcOptions{Bucket: s.cfg.BucketName, Object: src},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, src)
		}
		return fmt.Errorf("MinIO 拷贝文件失败: %w", err)
	}
	if err := s.Delete(ctx, src); err != nil {
		logger.Warn("MinIO 移动后删除源文件失败", zap.String("src", src), zap.Error(err))
	}
	return nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.cfg.BucketName, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("MinIO 删除文件失败: %w", err)
	}
	return nil
}

func (s *MinIOStore) DeletePrefix(ctx context.Context, prefix string) error {
	objectsCh := s.client.ListObjects(ctx, s.cfg.BucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	toRemove := make(chan minio.ObjectInfo)
	var listErr error
	go func() {
		defer close(toRemove)
		for obj := range objectsCh {
			if obj.Err != nil {
				listErr = obj.Err
				continue
			}
			toRemove <- obj
		}
	}()

	var errs []error
	for rErr := range s.client.RemoveObjects(ctx, s.cfg.BucketName, toRemove, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("%s: %w", rErr.ObjectName, rErr.Err))
	}
	// RemoveObjects 的错误通道关闭时 toRemove 已经被读完，listErr 不再被写
	if listErr != nil {
		errs = append(errs, listErr)
	}
	if len(errs) > 0 {
		return fmt.Errorf("MinIO 批量删除失败: %w", errors.Join(errs...))
	}
	return nil
}

// Location MinIO 的 URL 格式通常是：Endpoint/bucketName/objectName
func (s *MinIOStore) Location(key string) string {
	endpoint := s.cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if s.cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	return fmt.Sprintf("%s/%s/%s", endpoint, s.cfg.BucketName, key)
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
