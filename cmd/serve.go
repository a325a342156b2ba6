package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zimablue/zima-blue/api/core"
	"github.com/zimablue/zima-blue/database"
	"github.com/zimablue/zima-blue/internal/worker"
)

// 已结束上传会话的保留时长
const uploadSessionMaxAge = time.Hour

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	app, err := bootstrap()
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	defer app.close()

	if err := database.AutoMigrate(app.db); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}
	if err := ensureAdminUser(app.usersRepo); err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}

	// 初始化异步任务协程池
	worker.InitGlobalPool(app.cfg.WorkerCount, 1000)

	// 启动gin
	server, cleanup := core.StartServer(app.deps)
	go func() {
		log.Printf("Server started on %s", app.cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 定期清理过期的上传会话
	stopSessionCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				app.deps.Sessions.Prune(uploadSessionMaxAge)
			case <-stopSessionCleanup:
				return
			}
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	close(stopSessionCleanup)
	if cleanup != nil {
		cleanup()
	}
	worker.StopGlobalPool()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited successfully")
}
