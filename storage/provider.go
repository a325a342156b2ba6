package storage

import (
	"context"
	"io"
)

// Provider 存储提供者接口
// pathname 为 POSIX 风格相对路径，如 red-ab12c/original.png
// 多次 Save 之间没有事务保证，调用方自行处理部分失败
type Provider interface {
	// SaveWithContext 保存文件，已存在的路径直接覆盖
	SaveWithContext(ctx context.Context, pathname string, file io.Reader) error

	// GetWithContext 读取文件
	GetWithContext(ctx context.Context, pathname string) (io.ReadCloser, error)

	// DeleteWithContext 删除文件
	DeleteWithContext(ctx context.Context, pathname string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, pathname string) (bool, error)

	// ListPrefixes 列出顶层存储前缀（每张图片一个目录）
	ListPrefixes(ctx context.Context) ([]string, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}
