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
	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"go.uber.org/zap"
)

// AliyunOSSStore 阿里云 OSS 存储
type AliyunOSSStore struct {
	client *oss.Client
	bucket *oss.Bucket
	cfg    *config.AliyunOSSConfig // 阿里云OSS的配置信息
}

// NewAliyunOSSStore 创建并返回一个 AliyunOSSStore 实例
func NewAliyunOSSStore(cfg *config.AliyunOSSConfig) (*AliyunOSSStore, error) {
	// OSS Endpoint 应该包含 http:// 或 https:// 前缀
	ossClient, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		logger.Error("初始化阿里云OSS客户端失败", zap.Error(err))
		return nil, fmt.Errorf("无法初始化阿里云OSS客户端: %w", err)
	}
	bucket, err := ossClient.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("获取OSS存储桶失败: %w", err)
	}
	logger.Info("阿里云OSS客户端初始化成功", zap.String("endpoint", cfg.Endpoint))
	return &AliyunOSSStore{client: ossClient, bucket: bucket, cfg: cfg}, nil
}

// EnsureBucket 检查存储桶是否存在，不存在则创建
func (s *AliyunOSSStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.IsBucketExist(s.cfg.BucketName)
	if err != nil {
		return fmt.Errorf("检查阿里云 OSS 存储桶存在性失败: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.CreateBucket(s.cfg.BucketName); err != nil {
		return fmt.Errorf("创建阿里云 OSS 存储桶失败: %w", err)
	}
	logger.Info("阿里云 OSS 存储桶创建成功", zap.String("bucket", s.cfg.BucketName))
	return nil
}

func (s *AliyunOSSStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	opts := []oss.Option{oss.ContentType(contentType), oss.WithContext(ctx)}
	if size >= 0 {
		opts = append(opts, oss.ContentLength(size))
	}
	if err := s.bucket.PutObject(key, reader, opts...); err != nil {
		return "", fmt.Errorf("阿里云OSS上传文件失败: %w", err)
	}
	return s.cfg.BucketName + "/" + key, nil
}

func (s *AliyunOSSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if isOSSNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("阿里云OSS获取文件失败: %w", err)
	}
	return body, nil
}

func (s *AliyunOSSStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("阿里云OSS检查文件失败: %w", err)
	}
	return ok, nil
}

func (s *AliyunOSSStore) Move(ctx context.Context, src, dst string) error {
	if err := validKey(dst); err != nil {
		return err
	}
	if _, err := s.bucket.CopyObject(src, dst, oss.WithContext(ctx)); err != nil {
		if isOSSNotFound(err) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, src)
		}
		return fmt.Errorf("阿里云OSS拷贝文件失败: %w", err)
	}
	if err := s.Delete(ctx, src); err != nil {
		logger.Warn("阿里云OSS移动后删除源文件失败", zap.String("src", src), zap.Error(err))
	}
	return nil
}

func (s *AliyunOSSStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil && !isOSSNotFound(err) {
		return fmt.Errorf("阿里云OSS删除文件失败: %w", err)
	}
	return nil
}

func (s *AliyunOSSStore) DeletePrefix(ctx context.Context, prefix string) error {
	marker := ""
	for {
		res, err := s.bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker), oss.MaxKeys(1000), oss.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("阿里云OSS列举文件失败: %w", err)
		}
		keys := make([]string, 0, len(res.Objects))
		for _, obj := range res.Objects {
			keys = append(keys, obj.Key)
		}
		if len(keys) > 0 {
			if _, err := s.bucket.DeleteObjects(keys, oss.DeleteObjectsQuiet(true), oss.WithContext(ctx)); err != nil {
				return fmt.Errorf("阿里云OSS批量删除失败: %w", err)
			}
		}
		if !res.IsTruncated {
			return nil
		}
		marker = res.NextMarker
	}
}

func (s *AliyunOSSStore) Location(key string) string {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(s.cfg.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.cfg.BucketName, endpoint, key)
}

func isOSSNotFound(err error) bool {
	var svcErr oss.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode == http.StatusNotFound
	}
	return false
}
