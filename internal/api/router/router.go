package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/yuvalk87/mofet-forms-app/docs" // swagger docs
	adminhandler "github.com/yuvalk87/mofet-forms-app/internal/api/handler/admin"
	authhandler "github.com/yuvalk87/mofet-forms-app/internal/api/handler/auth"
	formhandler "github.com/yuvalk87/mofet-forms-app/internal/api/handler/form"
	"github.com/yuvalk87/mofet-forms-app/internal/api/middleware"
	authservice "github.com/yuvalk87/mofet-forms-app/internal/service/auth"
)

func Setup(
	authHandler *authhandler.AuthHandler,
	templateHandler *formhandler.TemplateHandler,
	formHandler *formhandler.FormHandler,
	approvalHandler *formhandler.ApprovalHandler,
	userHandler *adminhandler.UserHandler,
	roleHandler *adminhandler.RoleHandler,
	listHandler *adminhandler.DynamicListHandler,
	authService *authservice.AuthService,
	mode string,
) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	r := gin.New()
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// 公开路由
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/verify-otp", authHandler.VerifyOTP)
	}

	// 需要登录的路由
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(authService))
	{
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authHandler.GetCurrentUser)
		api.POST("/auth/2fa/setup", authHandler.Setup2FA)
		api.POST("/auth/2fa/enable", authHandler.Enable2FA)
		api.POST("/auth/2fa/disable", authHandler.Disable2FA)

		// 模板（只读）
		api.GET("/templates", templateHandler.ListTemplates)
		api.GET("/templates/:id", templateHandler.GetTemplate)

		// 表单
		api.POST("/forms", formHandler.SubmitForm)
		api.GET("/forms", formHandler.ListForms)
		api.GET("/forms/:id", formHandler.GetForm)
		api.GET("/forms/statistics", formHandler.GetStatistics)

		// 审批动作
		api.POST("/forms/:id/approve", approvalHandler.Approve)
		api.POST("/forms/:id/reject", approvalHandler.Reject)
		api.POST("/forms/:id/add-approver", approvalHandler.AddApprover)
		api.POST("/forms/:id/final-approve", approvalHandler.FinalApprove)
		api.GET("/my-approvals", approvalHandler.MyApprovals)
		api.GET("/approval-history", approvalHandler.ApprovalHistory)

		// 选人、选项下拉框
		api.GET("/users/active", userHandler.ListActiveUsers)
		api.GET("/lists", listHandler.ListLists)
		api.GET("/lists/:name", listHandler.GetList)
		api.GET("/field-types", listHandler.GetFieldTypes)
	}

	// 管理员路由
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(authService), middleware.AdminMiddleware())
	{
		adminGroup.GET("/users", userHandler.ListUsers)
		adminGroup.POST("/users", userHandler.CreateUser)
		adminGroup.PUT("/users/:id", userHandler.UpdateUser)
		adminGroup.DELETE("/users/:id", userHandler.DeleteUser)
		adminGroup.PUT("/users/:id/roles", userHandler.AssignRoles)

		adminGroup.GET("/roles", roleHandler.ListRoles)
		adminGroup.POST("/roles", roleHandler.CreateRole)
		adminGroup.PUT("/roles/:id", roleHandler.UpdateRole)
		adminGroup.DELETE("/roles/:id", roleHandler.DeleteRole)

		adminGroup.POST("/templates", templateHandler.CreateTemplate)
		adminGroup.PUT("/templates/:id", templateHandler.UpdateTemplate)
		adminGroup.DELETE("/templates/:id", templateHandler.DeactivateTemplate)

		adminGroup.PUT("/lists", listHandler.UpsertList)
		adminGroup.DELETE("/lists/:name", listHandler.DeleteList)
	}

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
