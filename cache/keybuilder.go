package cache

import (
	"fmt"
	"strings"
)

// KeyBuilder 缓存键构建器
type KeyBuilder struct {
	prefix string
	sep    string
}

// NewKeyBuilder 创建新的键构建器
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
		sep:    ":",
	}
}

// Build 构建缓存键
func (kb *KeyBuilder) Build(parts ...string) string {
	if len(parts) == 0 {
		return kb.prefix
	}
	return kb.prefix + kb.sep + strings.Join(parts, kb.sep)
}

// BuildID 构建带 ID 的缓存键
func (kb *KeyBuilder) BuildID(id interface{}) string {
	return fmt.Sprintf("%s%s%v", kb.prefix, kb.sep, id)
}

// 预定义的 KeyBuilder 实例
var (
	// Grid 网格布局缓存
	Grid = NewKeyBuilder("grid")

	// ImageMeta 图片元数据缓存
	ImageMeta = NewKeyBuilder("image_meta")

	// AuthRefresh 刷新令牌
	AuthRefresh = NewKeyBuilder("auth:refresh")
)

// GridLayoutKey 全局唯一的网格布局文档键
func GridLayoutKey() string {
	return Grid.Build("main")
}
