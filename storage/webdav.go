package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to webdav server: %w", err)
	}

	return &WebDAVStorage{
		client:   client,
		rootPath: rootPath,
	}, nil
}

func (s *WebDAVStorage) remotePath(pathname string) (string, error) {
	if pathname == "" || strings.Contains(pathname, "..") {
		return "", fmt.Errorf("invalid pathname: %s", pathname)
	}
	return path.Join(s.rootPath, pathname), nil
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, pathname string, file io.Reader) error {
	remote, err := s.remotePath(pathname)
	if err != nil {
		return err
	}

	if dir := path.Dir(remote); dir != "/" && dir != "." {
		if err := s.client.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create webdav directory '%s': %w", dir, err)
		}
	}

	if err := s.client.WriteStream(remote, file, 0644); err != nil {
		return fmt.Errorf("failed to write webdav file '%s': %w", pathname, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, pathname string) (io.ReadCloser, error) {
	remote, err := s.remotePath(pathname)
	if err != nil {
		return nil, err
	}

	reader, err := s.client.ReadStream(remote)
	if err != nil {
		return nil, fmt.Errorf("failed to read webdav file '%s': %w", pathname, err)
	}
	return reader, nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, pathname string) error {
	remote, err := s.remotePath(pathname)
	if err != nil {
		return err
	}

	if err := s.client.Remove(remote); err != nil {
		return fmt.Errorf("failed to delete webdav file '%s': %w", pathname, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, pathname string) (bool, error) {
	remote, err := s.remotePath(pathname)
	if err != nil {
		return false, err
	}

	if _, err := s.client.Stat(remote); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, nil
	}
	return true, nil
}

// ListPrefixes 列出顶层存储前缀
func (s *WebDAVStorage) ListPrefixes(ctx context.Context) ([]string, error) {
	root := s.rootPath
	if root == "" {
		root = "/"
	}

	entries, err := s.client.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list webdav directory '%s': %w", root, err)
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
func (s *WebDAVStorage) Health(ctx context.Context) error {
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("webdav health check failed: %w", err)
	}
	return nil
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}
