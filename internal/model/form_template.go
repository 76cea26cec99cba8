package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ApproveMode 角色步骤解析策略（模板级显式配置，不做推断）
type ApproveMode string

const (
	// ApproveModeAll 角色下所有活跃用户都必须审批
	ApproveModeAll ApproveMode = "all"
	// ApproveModeFirst 仅取角色下第一个活跃用户（按用户ID升序）
	ApproveModeFirst ApproveMode = "first"
)

// RejectPolicy 驳回策略（模板级显式配置）
type RejectPolicy string

const (
	// RejectPolicyTerminate 驳回即终止（默认）
	RejectPolicyTerminate RejectPolicy = "terminate"
	// RejectPolicyRewind 驳回回退一步，仅在第0步驳回时终止
	RejectPolicyRewind RejectPolicy = "rewind"
)

// StepSpec 审批链步骤定义，role / user 二选一
type StepSpec struct {
	Type   string `json:"type"`              // role / user
	RoleID uint   `json:"role_id,omitempty"` // Type=role 时有效
	UserID string `json:"user_id,omitempty"` // Type=user 时有效
}

const (
	StepTypeRole = "role"
	StepTypeUser = "user"
)

// Validate 校验单个步骤定义
func (s StepSpec) Validate() error {
	switch s.Type {
	case StepTypeRole:
		if s.RoleID == 0 {
			return fmt.Errorf("role step requires role_id")
		}
	case StepTypeUser:
		if s.UserID == "" {
			return fmt.Errorf("user step requires user_id")
		}
	default:
		return fmt.Errorf("unknown step type: %q", s.Type)
	}
	return nil
}

// FormTemplate 表单模板，approval_chain 为步骤定义的有序JSON数组
type FormTemplate struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(100);not null" json:"name"`
	NameHebrew    string         `gorm:"type:varchar(100)" json:"name_hebrew"`
	Description   string         `gorm:"type:text" json:"description"`
	FormType      string         `gorm:"type:varchar(50);uniqueIndex" json:"form_type"`
	FieldsConfig  datatypes.JSON `gorm:"type:json" json:"fields_config"`
	ApprovalChain datatypes.JSON `gorm:"type:json;not null" json:"approval_chain"`
	ApproveMode   ApproveMode    `gorm:"type:varchar(10);default:all" json:"approve_mode"`
	RejectPolicy  RejectPolicy   `gorm:"type:varchar(10);default:terminate" json:"reject_policy"`
	IsActive      bool           `gorm:"default:true;index" json:"is_active"`
	CreatedBy     string         `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (FormTemplate) TableName() string {
	return "form_templates"
}

// Steps 解析审批链
func (t *FormTemplate) Steps() ([]StepSpec, error) {
	var steps []StepSpec
	if len(t.ApprovalChain) == 0 {
		return steps, nil
	}
	if err := json.Unmarshal(t.ApprovalChain, &steps); err != nil {
		return nil, fmt.Errorf("invalid approval_chain on template %d: %w", t.ID, err)
	}
	return steps, nil
}

// ChainLength 审批链长度，解析失败按0处理
func (t *FormTemplate) ChainLength() int {
	steps, err := t.Steps()
	if err != nil {
		return 0
	}
	return len(steps)
}

// NormalizedApproveMode 返回有效的解析策略（空值回落到 all）
func (t *FormTemplate) NormalizedApproveMode() ApproveMode {
	if t.ApproveMode == ApproveModeFirst {
		return ApproveModeFirst
	}
	return ApproveModeAll
}

// NormalizedRejectPolicy 返回有效的驳回策略（空值回落到 terminate）
func (t *FormTemplate) NormalizedRejectPolicy() RejectPolicy {
	if t.RejectPolicy == RejectPolicyRewind {
		return RejectPolicyRewind
	}
	return RejectPolicyTerminate
}
