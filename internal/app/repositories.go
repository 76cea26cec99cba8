package app

import (
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
	"github.com/yuvalk87/mofet-forms-app/pkg/database"
)

// Repositories 仓储集合
type Repositories struct {
	User        *repository.UserRepository
	Role        *repository.RoleRepository
	Template    *repository.FormTemplateRepository
	Form        *repository.FormRepository
	DynamicList *repository.DynamicListRepository
	OTP         *repository.OTPRepository
}

// InitializeRepositories 初始化仓储
func InitializeRepositories() *Repositories {
	return &Repositories{
		User:        repository.NewUserRepository(database.DB),
		Role:        repository.NewRoleRepository(database.DB),
		Template:    repository.NewFormTemplateRepository(database.DB),
		Form:        repository.NewFormRepository(database.DB),
		DynamicList: repository.NewDynamicListRepository(database.DB),
		OTP:         repository.NewOTPRepository(database.DB),
	}
}
