package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"go.uber.org/zap"
)

// LocalStore 本地磁盘存储。写入先落到同目录的临时文件，fsync 后 rename，
// 进程中途崩溃只会留下 .partial 文件，读者永远看不到半个对象
type LocalStore struct {
	basePath      string
	publicBaseURL string
}

// NewLocalStore 创建以 basePath 为根的 LocalStore
func NewLocalStore(basePath, publicBaseURL string) (*LocalStore, error) {
	if basePath == "" {
		return nil, errors.New("storage: local base path is empty")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base path: %w", err)
	}
	logger.Info("本地存储初始化成功", zap.String("basePath", abs))
	return &LocalStore{basePath: abs, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("本地存储创建目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".partial-*")
	if err != nil {
		return "", fmt.Errorf("本地存储创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: reader})
	if err != nil {
		cleanup()
		return "", fmt.Errorf("本地存储写入失败: %w", err)
	}
	if size >= 0 && written != size {
		cleanup()
		return "", fmt.Errorf("本地存储写入长度不符: want %d, got %d", size, written)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("本地存储刷盘失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("本地存储关闭文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("本地存储重命名失败: %w", err)
	}
	return dst, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("本地存储打开文件失败: %w", err)
	}
	return &ctxReadCloser{ctxReader: ctxReader{ctx: ctx, r: f}, c: f}, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) Move(ctx context.Context, src, dst string) error {
	from, err := s.path(src)
	if err != nil {
		return err
	}
	to, err := s.path(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("本地存储创建目录失败: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, src)
		}
		return fmt.Errorf("本地存储移动文件失败: %w", err)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("本地存储删除文件失败: %w", err)
	}
	return nil
}

func (s *LocalStore) DeletePrefix(ctx context.Context, prefix string) error {
	p, err := s.path(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("本地存储删除目录失败: %w", err)
	}
	return nil
}

func (s *LocalStore) Location(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	p, err := s.path(key)
	if err != nil {
		return ""
	}
	return p
}

// ctxReader 在每次 Read 前检查 ctx，使本地拷贝也能被超时打断
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type ctxReadCloser struct {
	ctxReader
	c io.Closer
}

func (c *ctxReadCloser) Close() error {
	return c.c.Close()
}
