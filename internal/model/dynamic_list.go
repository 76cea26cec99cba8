package model

import (
	"time"

	"gorm.io/datatypes"
)

// DynamicList 表单字段的动态选项列表（下拉框选项等）。
// 持久化在数据库而不是进程内存，重启不丢失且支持多实例部署。
type DynamicList struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:varchar(255)" json:"description"`
	Items       datatypes.JSON `gorm:"type:json;not null" json:"items"`
	UpdatedBy   string         `gorm:"type:varchar(36)" json:"updated_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (DynamicList) TableName() string {
	return "dynamic_lists"
}
