package app

import (
	"log"
	"os"

	casbinpkg "github.com/yuvalk87/mofet-forms-app/pkg/casbin"
	"github.com/yuvalk87/mofet-forms-app/pkg/config"
	"github.com/yuvalk87/mofet-forms-app/pkg/database"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
	pkgredis "github.com/yuvalk87/mofet-forms-app/pkg/redis"
)

// Bootstrap 初始化基础设施（logger, database, redis, casbin）
func Bootstrap(cfgPath string) (*config.Config, error) {
	// 支持通过环境变量指定配置文件路径
	if cfgPath == "" {
		cfgPath = os.Getenv("MOFET_CONFIG")
		if cfgPath == "" {
			cfgPath = "config/config.yaml"
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	// Initialize logger
	if err := logger.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	logger.Infof("Database initialized successfully")

	// Initialize Redis (optional)
	if err := pkgredis.Init(&cfg.Redis); err != nil {
		logger.Warnf("⚠️  Redis initialization failed: %v", err)
		logger.Info("   → OTP codes will be stored in the database (single-server mode)")
	} else if cfg.Redis.Enabled {
		logger.Infof("✅ Redis initialized successfully - distributed features enabled")
	} else {
		logger.Info("ℹ️  Redis is disabled in config - using database mode")
	}

	// Initialize Casbin permission manager (after Redis, so Watcher can be configured)
	if err := casbinpkg.Init(); err != nil {
		logger.Fatalf("Failed to initialize Casbin: %v", err)
	}
	logger.Infof("Casbin permission manager initialized successfully")

	return cfg, nil
}
