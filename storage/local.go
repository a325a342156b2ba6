package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	absBasePath string
}

// NewLocalStorage 创建本地存储提供者
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
	}, nil
}

// resolve 将相对路径解析到基目录内，拒绝目录穿越
func (s *LocalStorage) resolve(pathname string) (string, error) {
	if pathname == "" || strings.Contains(pathname, "..") {
		return "", fmt.Errorf("invalid pathname: %s", pathname)
	}

	fullPath := filepath.Join(s.absBasePath, filepath.FromSlash(pathname))
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return "", fmt.Errorf("invalid pathname, potential directory traversal: %s", pathname)
	}
	return fullPath, nil
}

// SaveWithContext 保存文件到本地存储
func (s *LocalStorage) SaveWithContext(ctx context.Context, pathname string, file io.Reader) error {
	dstPath, err := s.resolve(pathname)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for '%s': %w", pathname, err)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("failed to copy file content to '%s': %w", dstPath, err)
	}

	return nil
}

// GetWithContext 从本地存储获取文件
func (s *LocalStorage) GetWithContext(ctx context.Context, pathname string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(pathname)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", pathname)
		}
		return nil, fmt.Errorf("failed to open file '%s': %w", pathname, err)
	}

	return file, nil
}

// DeleteWithContext 从本地存储删除文件
func (s *LocalStorage) DeleteWithContext(ctx context.Context, pathname string) error {
	fullPath, err := s.resolve(pathname)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file to delete not found: %s", pathname)
		}
		return fmt.Errorf("failed to delete local file '%s': %w", fullPath, err)
	}

	// 前缀目录空了就顺手移除，忽略失败
	_ = os.Remove(filepath.Dir(fullPath))

	return nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, pathname string) (bool, error) {
	fullPath, err := s.resolve(pathname)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListPrefixes 列出顶层存储前缀
func (s *LocalStorage) ListPrefixes(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.absBasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list local storage directory: %w", err)
	}

	prefixes := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			prefixes = append(prefixes, entry.Name())
		}
	}
	return prefixes, nil
}

// Health 检查存储健康状态
func (s *LocalStorage) Health(ctx context.Context) error {
	if _, err := os.Stat(s.absBasePath); err != nil {
		return fmt.Errorf("local storage base path unavailable: %w", err)
	}
	return nil
}

// Name 返回存储名称
func (s *LocalStorage) Name() string {
	return "local"
}
