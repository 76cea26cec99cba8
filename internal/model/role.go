package model

import (
	"time"

	"gorm.io/datatypes"
)

// Role 审批角色（审批链中的角色步骤解析到持有该角色的用户）
type Role struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	NameHebrew  string         `gorm:"type:varchar(100)" json:"name_hebrew"`
	Description string         `gorm:"type:varchar(255)" json:"description"`
	Permissions datatypes.JSON `gorm:"type:json" json:"permissions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Role) TableName() string {
	return "roles"
}

// UserRole 用户-角色关联
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_user_role" json:"user_id"`
	RoleID    uint      `gorm:"not null;uniqueIndex:uk_user_role;index" json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
