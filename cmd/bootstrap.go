package cmd

import (
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/core"
	"github.com/zimablue/zima-blue/cache"
	"github.com/zimablue/zima-blue/config"
	"github.com/zimablue/zima-blue/database"
	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/database/repo/collections"
	"github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/database/repo/messages"
	"github.com/zimablue/zima-blue/database/repo/tags"
	"github.com/zimablue/zima-blue/database/repo/todos"
	"github.com/zimablue/zima-blue/database/repo/users"
	"github.com/zimablue/zima-blue/internal/auth"
	"github.com/zimablue/zima-blue/internal/dashboard"
	"github.com/zimablue/zima-blue/internal/grid"
	imagesvc "github.com/zimablue/zima-blue/internal/images"
	"github.com/zimablue/zima-blue/internal/variants"
	"github.com/zimablue/zima-blue/storage"
	"github.com/zimablue/zima-blue/utils"
	"github.com/zimablue/zima-blue/utils/crypto"
)

// appContext 一次进程生命周期内共享的依赖
type appContext struct {
	cfg       *config.Config
	db        *gorm.DB
	cache     cache.Provider
	storage   storage.Provider
	usersRepo *users.Repository
	deps      *core.ServerDependencies
}

// bootstrap 装配配置、数据库、缓存、存储与全部服务
func bootstrap() (*appContext, error) {
	config.InitConfig()
	cfg := config.Get()

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Type:     cfg.CacheType,
		Address:  cfg.CacheRedisAddr,
		Password: cfg.CacheRedisPassword,
		DB:       cfg.CacheRedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	storageProvider, err := storage.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	imagesRepo := images.NewRepository(db)
	collectionsRepo := collections.NewRepository(db)
	tagsRepo := tags.NewRepository(db)
	messagesRepo := messages.NewRepository(db)
	todosRepo := todos.NewRepository(db)
	usersRepo := users.NewRepository(db)

	jwtService, err := auth.NewJWTService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	loginService := auth.NewLoginService(usersRepo, jwtService, cacheProvider)

	gridStore := grid.NewStore(cacheProvider, imagesRepo.ExistingIDs)
	generator := variants.NewGenerator(storageProvider)
	imageService := imagesvc.NewService(imagesRepo, generator, storageProvider, gridStore)
	dashboardService := dashboard.NewService(imagesRepo, collectionsRepo, tagsRepo, messagesRepo, todosRepo)

	deps := &core.ServerDependencies{
		DB:              db,
		Cache:           cacheProvider,
		Storage:         storageProvider,
		ImagesRepo:      imagesRepo,
		CollectionsRepo: collectionsRepo,
		TagsRepo:        tagsRepo,
		MessagesRepo:    messagesRepo,
		TodosRepo:       todosRepo,
		JWTService:      jwtService,
		LoginService:    loginService,
		ImageService:    imageService,
		Dashboard:       dashboardService,
		GridStore:       gridStore,
		Sessions:        grid.NewSessionTracker(),
	}

	return &appContext{
		cfg:       cfg,
		db:        db,
		cache:     cacheProvider,
		storage:   storageProvider,
		usersRepo: usersRepo,
		deps:      deps,
	}, nil
}

// close 释放缓存等外部连接
func (app *appContext) close() {
	if err := app.cache.Close(); err != nil {
		log.Printf("Error closing cache: %v", err)
	}
	if sqlDB, err := app.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// ensureAdminUser 没有任何用户时创建默认管理员
// 密码来自 ZIMA_ADMIN_PASSWORD 环境变量，缺省时随机生成并打印一次
func ensureAdminUser(usersRepo *users.Repository) error {
	count, err := usersRepo.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ZIMA_ADMIN_PASSWORD")
	generated := false
	if password == "" {
		password, err = utils.GenerateRandomToken(16)
		if err != nil {
			return err
		}
		generated = true
	}

	hash, err := crypto.GenerateFromPassword(password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: "admin",
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if err := usersRepo.Create(admin); err != nil {
		return err
	}

	if generated {
		log.Printf("Created default admin user with password: %s", password)
	} else {
		log.Println("Created default admin user")
	}
	return nil
}
