package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"
)

// MemoryConfig 内存缓存配置
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

// memoryCache 基于 ristretto 的进程内缓存实现
type memoryCache struct {
	client *ristretto.Cache
}

// NewMemoryCache 创建内存缓存提供者
func NewMemoryCache(cfg MemoryConfig) (Provider, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &memoryCache{client: cache}, nil
}

// Set 设置缓存项，统一存储 JSON 字节
func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if m.client.SetWithTTL(key, data, int64(len(data)), expiration) {
		// 等待值被实际设置，保证读己所写
		m.client.Wait()
	}
	return nil
}

// Get 获取缓存项
func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	value, found := m.client.Get(key)
	if !found {
		return ErrCacheMiss
	}

	data, ok := value.([]byte)
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

// Delete 删除缓存项
func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.client.Del(key)
	return nil
}

// Exists 检查缓存项是否存在
func (m *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, found := m.client.Get(key)
	return found, nil
}

// Close 关闭缓存
func (m *memoryCache) Close() error {
	m.client.Close()
	return nil
}

// Name 提供者名称
func (m *memoryCache) Name() string {
	return "memory"
}
