package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/api/middleware"
	"github.com/zimablue/zima-blue/cache"
	"github.com/zimablue/zima-blue/config"
	"github.com/zimablue/zima-blue/database/repo/collections"
	"github.com/zimablue/zima-blue/database/repo/images"
	"github.com/zimablue/zima-blue/database/repo/messages"
	"github.com/zimablue/zima-blue/database/repo/tags"
	"github.com/zimablue/zima-blue/database/repo/todos"
	"github.com/zimablue/zima-blue/internal/auth"
	"github.com/zimablue/zima-blue/internal/dashboard"
	"github.com/zimablue/zima-blue/internal/grid"
	imagesvc "github.com/zimablue/zima-blue/internal/images"
	"github.com/zimablue/zima-blue/storage"
)

var startTime = time.Now()

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	DB      *gorm.DB
	Cache   cache.Provider
	Storage storage.Provider

	ImagesRepo      *images.Repository
	CollectionsRepo *collections.Repository
	TagsRepo        *tags.Repository
	MessagesRepo    *messages.Repository
	TodosRepo       *todos.Repository

	JWTService   *auth.JWTService
	LoginService *auth.LoginService
	ImageService *imagesvc.Service
	Dashboard    *dashboard.Service
	GridStore    *grid.Store
	Sessions     *grid.SessionTracker
}

// 启动gin
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := config.Get()
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.CommitHash == "n/a" {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)

	// 限制上传文件大小
	router.MaxMultipartMemory = int64(cfg.UploadMaxSizeMB) << 20

	// 并发限制，避免内存过载
	concurrencyLimiter := middleware.NewConcurrencyLimiter(100)
	router.Use(concurrencyLimiter.Middleware())

	// 请求ID追踪
	router.Use(middleware.RequestID())

	// 基础监控指标
	router.Use(middleware.Metrics())

	// 速率限制
	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
	}

	router.GET("/health", func(context *gin.Context) {
		checks := gin.H{
			"database": checkDatabaseHealth(deps.DB),
			"cache":    checkCacheHealth(deps.Cache),
			"storage":  checkStorageHealth(deps.Storage),
		}
		httpStatus := http.StatusOK
		for _, checkResult := range checks {
			if result, ok := checkResult.(string); ok && result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		context.JSON(httpStatus, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks":  checks,
		})
	})
	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})
	router.GET("/metrics", func(context *gin.Context) {
		context.JSON(http.StatusOK, middleware.GetMetrics())
	})

	registerRoutes(router, deps, authRateLimiter, apiRateLimiter)

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := config.Get()
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
