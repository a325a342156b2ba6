package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig MinIO 配置
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// MinioStorage MinIO 对象存储实现
type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorage 创建 MinIO 存储提供者，桶不存在时自动创建
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket '%s' exists: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.BucketName, err)
		}
	}

	return &MinioStorage{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// SaveWithContext 保存文件到 MinIO
func (s *MinioStorage) SaveWithContext(ctx context.Context, pathname string, file io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucketName, pathname, file, -1, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to put object '%s': %w", pathname, err)
	}
	return nil
}

// GetWithContext 从 MinIO 获取文件
func (s *MinioStorage) GetWithContext(ctx context.Context, pathname string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, pathname, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s': %w", pathname, err)
	}

	// GetObject 是惰性的，Stat 确认对象真实存在
	if _, err := object.Stat(); err != nil {
		object.Close()
		return nil, fmt.Errorf("object not found: %s", pathname)
	}

	return object, nil
}

// DeleteWithContext 从 MinIO 删除文件
func (s *MinioStorage) DeleteWithContext(ctx context.Context, pathname string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, pathname, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object '%s': %w", pathname, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *MinioStorage) Exists(ctx context.Context, pathname string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, pathname, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListPrefixes 列出顶层存储前缀（非递归，目录风格的公共前缀）
func (s *MinioStorage) ListPrefixes(ctx context.Context) ([]string, error) {
	var prefixes []string
	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Recursive: false}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			prefixes = append(prefixes, strings.TrimSuffix(object.Key, "/"))
		}
	}
	return prefixes, nil
}

// Health 检查存储健康状态
func (s *MinioStorage) Health(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("minio health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", s.bucketName)
	}
	return nil
}

// Name 返回存储名称
func (s *MinioStorage) Name() string {
	return "minio"
}
