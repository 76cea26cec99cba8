package app

import (
	adminhandler "github.com/yuvalk87/mofet-forms-app/internal/api/handler/admin"
	authhandler "github.com/yuvalk87/mofet-forms-app/internal/api/handler/auth"
	formhandler "github.com/yuvalk87/mofet-forms-app/internal/api/handler/form"
)

// Handlers 处理器集合
type Handlers struct {
	Auth        *authhandler.AuthHandler
	Template    *formhandler.TemplateHandler
	Form        *formhandler.FormHandler
	Approval    *formhandler.ApprovalHandler
	User        *adminhandler.UserHandler
	Role        *adminhandler.RoleHandler
	DynamicList *adminhandler.DynamicListHandler
}

// InitializeHandlers 初始化处理器
func InitializeHandlers(repos *Repositories, services *Services) *Handlers {
	return &Handlers{
		Auth:        authhandler.NewAuthHandler(services.Auth, repos.User),
		Template:    formhandler.NewTemplateHandler(repos.Template),
		Form:        formhandler.NewFormHandler(services.Engine, repos.Form, repos.User),
		Approval:    formhandler.NewApprovalHandler(services.Engine, repos.User),
		User:        adminhandler.NewUserHandler(repos.User, repos.Role, services.Auth),
		Role:        adminhandler.NewRoleHandler(repos.Role),
		DynamicList: adminhandler.NewDynamicListHandler(repos.DynamicList),
	}
}
