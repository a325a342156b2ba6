package core

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/cache"
	"github.com/zimablue/zima-blue/storage"
)

const healthCheckTimeout = 3 * time.Second

func checkDatabaseHealth(db *gorm.DB) string {
	sqlDB, err := db.DB()
	if err != nil {
		return err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

func checkCacheHealth(provider cache.Provider) string {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	if _, err := provider.Exists(ctx, "health:probe"); err != nil {
		return err.Error()
	}
	return "ok"
}

func checkStorageHealth(provider storage.Provider) string {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	if err := provider.Health(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
