package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuvalk87/mofet-forms-app/internal/api/router"
	"github.com/yuvalk87/mofet-forms-app/pkg/config"
	"github.com/yuvalk87/mofet-forms-app/pkg/database"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
	pkgredis "github.com/yuvalk87/mofet-forms-app/pkg/redis"
)

// StartServer 启动 HTTP 服务器，阻塞直到收到退出信号
func StartServer(app *App) {
	r := router.Setup(
		app.Handlers.Auth,
		app.Handlers.Template,
		app.Handlers.Form,
		app.Handlers.Approval,
		app.Handlers.User,
		app.Handlers.Role,
		app.Handlers.DynamicList,
		app.Services.Auth,
		app.Config.Server.Mode,
	)

	addr := fmt.Sprintf(":%d", app.Config.Server.APIPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	printStartupBanner(app.Config)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Infof("\nShutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("  → Stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("  Warning: HTTP server shutdown error: %v", err)
	}

	logger.Infof("  → Closing Redis connection...")
	if err := pkgredis.Close(); err != nil {
		logger.Warnf("  Warning: Redis close error: %v", err)
	}

	logger.Infof("  → Closing database connection...")
	if err := database.Close(); err != nil {
		logger.Warnf("  Warning: database close error: %v", err)
	}

	logger.Sync()
	logger.Infof("Shutdown complete")
}

func printStartupBanner(cfg *config.Config) {
	logger.Infof("")
	logger.Infof("========================================")
	logger.Infof("  Mofet Forms API Server")
	logger.Infof("  Listening on :%d (mode: %s)", cfg.Server.APIPort, cfg.Server.Mode)
	logger.Infof("  Swagger: http://localhost:%d/swagger/index.html", cfg.Server.APIPort)
	logger.Infof("  Metrics: http://localhost:%d/metrics", cfg.Server.APIPort)
	logger.Infof("========================================")
	logger.Infof("")
}
