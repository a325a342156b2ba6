package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider 缓存提供者接口
type Provider interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
	Name() string
}

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Config 缓存配置
type Config struct {
	Type        string // "memory" or "redis"
	NumCounters int64  // memory only
	MaxCost     int64  // memory only
	BufferItems int64  // memory only
	Address     string // redis only
	Password    string // redis only
	DB          int    // redis only
}

// NewProvider 根据配置创建缓存提供者
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Type {
	case "memory", "":
		memCfg := MemoryConfig{
			NumCounters: cfg.NumCounters,
			MaxCost:     cfg.MaxCost,
			BufferItems: cfg.BufferItems,
		}
		if memCfg.NumCounters == 0 {
			memCfg.NumCounters = 1000000
		}
		if memCfg.MaxCost == 0 {
			memCfg.MaxCost = 268435456 // 256MB
		}
		if memCfg.BufferItems == 0 {
			memCfg.BufferItems = 64
		}
		return NewMemoryCache(memCfg)
	case "redis":
		return NewRedisCache(RedisConfig{
			Address:  cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
