package app

import (
	"time"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/notification"
	authservice "github.com/yuvalk87/mofet-forms-app/internal/service/auth"
	"github.com/yuvalk87/mofet-forms-app/internal/workflow"
	"github.com/yuvalk87/mofet-forms-app/pkg/casbin"
	"github.com/yuvalk87/mofet-forms-app/pkg/config"
	"github.com/yuvalk87/mofet-forms-app/pkg/database"
)

// Services 服务集合
type Services struct {
	Auth   *authservice.AuthService
	Engine *workflow.Engine
}

// InitializeServices 初始化服务
func InitializeServices(repos *Repositories, cfg *config.Config, notifier *notification.Manager) *Services {
	authSvc := authservice.NewAuthService(
		repos.User,
		repos.OTP,
		notifier,
		cfg.Security.JWTSecret,
		time.Duration(cfg.Security.SessionTimeout)*time.Second,
		time.Duration(cfg.Security.OTPExpireMinutes)*time.Minute,
	)

	engine := workflow.NewEngine(database.DB, notifier, adminChecker)

	return &Services{
		Auth:   authSvc,
		Engine: engine,
	}
}

// adminChecker 引擎边界的管理员能力检查：
// 用户role字段为admin，或在casbin里被授予role:admin。
func adminChecker(actor *model.User) bool {
	if actor == nil {
		return false
	}
	if actor.Role == "admin" {
		return true
	}
	ok, err := casbin.CheckPermission(actor.ID, "workflow:override", "*")
	if err != nil {
		return false
	}
	return ok
}
