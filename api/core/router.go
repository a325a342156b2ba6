package core

import (
	"github.com/gin-gonic/gin"

	"github.com/zimablue/zima-blue/api/handler/admin"
	"github.com/zimablue/zima-blue/api/handler/authn"
	"github.com/zimablue/zima-blue/api/handler/collections"
	"github.com/zimablue/zima-blue/api/handler/gridlayout"
	"github.com/zimablue/zima-blue/api/handler/images"
	"github.com/zimablue/zima-blue/api/handler/messages"
	"github.com/zimablue/zima-blue/api/handler/tags"
	"github.com/zimablue/zima-blue/api/handler/todos"
	"github.com/zimablue/zima-blue/api/middleware"
)

// registerRoutes 挂载全部业务路由
func registerRoutes(router *gin.Engine, deps *ServerDependencies, authRateLimiter, apiRateLimiter *middleware.IPRateLimiter) {
	imageHandler := images.NewHandler(deps.ImageService, deps.ImagesRepo, deps.TagsRepo, deps.GridStore, deps.Storage, deps.Sessions)
	gridHandler := gridlayout.NewHandler(deps.GridStore, deps.ImagesRepo)
	collectionHandler := collections.NewHandler(deps.CollectionsRepo, deps.ImagesRepo)
	tagHandler := tags.NewHandler(deps.TagsRepo)
	messageHandler := messages.NewHandler(deps.MessagesRepo)
	todoHandler := todos.NewHandler(deps.TodosRepo)
	adminHandler := admin.NewHandler(deps.ImageService, deps.ImagesRepo, deps.Dashboard)
	authHandler := authn.NewHandler(deps.LoginService)

	// 图片内容直出
	router.GET("/images/*filepath", imageHandler.ServeBlob)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	apiGroup.Use(apiRateLimiter.Middleware())
	{
		authGroup := apiGroup.Group("/auth")
		authGroup.Use(authRateLimiter.Middleware())
		{
			authGroup.POST("/login", authHandler.Login)     // POST /api/auth/login
			authGroup.POST("/refresh", authHandler.Refresh) // POST /api/auth/refresh
			authGroup.POST("/logout", authHandler.Logout)   // POST /api/auth/logout
		}

		// 公开读取接口
		publicGroup := apiGroup.Group("")
		publicGroup.Use(middleware.OptionalJWTAuth(deps.JWTService))
		{
			publicGroup.GET("/grid", gridHandler.GetGrid)                                    // GET /api/grid
			publicGroup.GET("/images", imageHandler.ListImages)                              // GET /api/images
			publicGroup.GET("/images/slug/:slug", imageHandler.GetImage)                     // GET /api/images/slug/{slug}
			publicGroup.POST("/images/id/:id/counters/:counter", imageHandler.IncrementCounter) // POST /api/images/id/{id}/counters/{counter}
			publicGroup.GET("/collections", collectionHandler.ListCollections)               // GET /api/collections
			publicGroup.GET("/collections/:id", collectionHandler.GetCollection)             // GET /api/collections/{id}
			publicGroup.POST("/collections/:id/counters/:counter", collectionHandler.IncrementCounter) // POST /api/collections/{id}/counters/{counter}
			publicGroup.GET("/tags", tagHandler.ListTags)                                    // GET /api/tags
			publicGroup.POST("/messages", messageHandler.CreateMessage)                      // POST /api/messages
		}

		// 需要认证的写接口
		authed := apiGroup.Group("")
		authed.Use(middleware.JWTAuth(deps.JWTService))
		{
			// 图片内容变更只开放给管理员
			imagesGroup := authed.Group("/images")
			imagesGroup.Use(middleware.RequireRole("admin"))
			{
				imagesGroup.POST("/upload", imageHandler.UploadImage)             // POST /api/images/upload
				imagesGroup.GET("/upload/:id/status", imageHandler.UploadStatus)  // GET /api/images/upload/{id}/status
				imagesGroup.PATCH("/id/:id", imageHandler.UpdateImage)            // PATCH /api/images/id/{id}
				imagesGroup.POST("/id/:id/replace", imageHandler.ReplaceImage)    // POST /api/images/id/{id}/replace
				imagesGroup.DELETE("/:id", imageHandler.DeleteImage)              // DELETE /api/images/{id}
				imagesGroup.POST("/bulk-delete", imageHandler.BulkDeleteImages)   // POST /api/images/bulk-delete
			}

			authed.POST("/grid/save", gridHandler.SaveGrid) // POST /api/grid/save

			collectionsGroup := authed.Group("/collections")
			{
				collectionsGroup.POST("", collectionHandler.CreateCollection)                      // POST /api/collections
				collectionsGroup.PUT("/:id", collectionHandler.UpdateCollection)                   // PUT /api/collections/{id}
				collectionsGroup.DELETE("/:id", collectionHandler.DeleteCollection)                // DELETE /api/collections/{id}
				collectionsGroup.POST("/:id/images", collectionHandler.AddImages)                  // POST /api/collections/{id}/images
				collectionsGroup.DELETE("/:id/images/:imageId", collectionHandler.RemoveImage)     // DELETE /api/collections/{id}/images/{imageId}
				collectionsGroup.POST("/:id/reorder", collectionHandler.Reorder)                   // POST /api/collections/{id}/reorder
			}

			tagsGroup := authed.Group("/tags")
			{
				tagsGroup.POST("", tagHandler.CreateTag)       // POST /api/tags
				tagsGroup.PUT("/:id", tagHandler.UpdateTag)    // PUT /api/tags/{id}
				tagsGroup.DELETE("/:id", tagHandler.DeleteTag) // DELETE /api/tags/{id}
			}

			// 管理端
			adminGroup := authed.Group("/admin")
			adminGroup.Use(middleware.RequireRole("admin"))
			{
				adminGroup.GET("/dashboard", adminHandler.Dashboard)                      // GET /api/admin/dashboard
				adminGroup.POST("/images/:id/regenerate", adminHandler.RegenerateImage)   // POST /api/admin/images/{id}/regenerate
				adminGroup.POST("/images/regenerate-all", adminHandler.RegenerateAll)     // POST /api/admin/images/regenerate-all

				messagesGroup := adminGroup.Group("/messages")
				{
					messagesGroup.GET("", messageHandler.ListMessages)          // GET /api/admin/messages
					messagesGroup.POST("/:id/read", messageHandler.MarkRead)    // POST /api/admin/messages/{id}/read
					messagesGroup.DELETE("/:id", messageHandler.DeleteMessage)  // DELETE /api/admin/messages/{id}
				}

				todosGroup := adminGroup.Group("/todos")
				{
					todosGroup.GET("", todoHandler.ListTodos)          // GET /api/admin/todos
					todosGroup.POST("", todoHandler.CreateTodo)        // POST /api/admin/todos
					todosGroup.PUT("/:id", todoHandler.UpdateTodo)     // PUT /api/admin/todos/{id}
					todosGroup.DELETE("/:id", todoHandler.DeleteTodo)  // DELETE /api/admin/todos/{id}
				}
			}
		}
	}
}
