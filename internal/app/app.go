package app

import (
	"github.com/yuvalk87/mofet-forms-app/internal/notification"
	"github.com/yuvalk87/mofet-forms-app/pkg/config"
	"github.com/yuvalk87/mofet-forms-app/pkg/database"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
)

// App 应用程序上下文
type App struct {
	Config              *config.Config
	Repos               *Repositories
	Services            *Services
	Handlers            *Handlers
	NotificationManager *notification.Manager
}

// Initialize 初始化应用程序
func Initialize(cfgPath string) (*App, error) {
	// 1. Bootstrap (logger, database, redis, casbin)
	cfg, err := Bootstrap(cfgPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			database.Close()
		}
	}()

	// 2. Initialize repositories
	repos := InitializeRepositories()
	logger.Infof("Repositories initialized")

	// 3. Initialize notification manager
	notificationMgr := notification.NewManager(&cfg.Notify)
	logger.Infof("Notification Manager initialized")

	// 4. Initialize services (auth + workflow engine)
	services := InitializeServices(repos, cfg, notificationMgr)
	logger.Infof("Services initialized")

	// 5. Initialize handlers
	handlers := InitializeHandlers(repos, services)
	logger.Infof("Handlers initialized")

	return &App{
		Config:              cfg,
		Repos:               repos,
		Services:            services,
		Handlers:            handlers,
		NotificationManager: notificationMgr,
	}, nil
}
