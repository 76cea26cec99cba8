package main

import (
	_ "github.com/yuvalk87/mofet-forms-app/docs" // swagger docs
	"github.com/yuvalk87/mofet-forms-app/internal/app"
)

// @title           Mofet Forms API
// @version         1.0
// @description     多级表单审批流系统 API 文档

// @contact.name   API Support

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize application
	application, err := app.Initialize("")
	if err != nil {
		panic(err)
	}

	// Start server
	app.StartServer(application)
}
