package model

import (
	"time"
)

// ApprovalAction 审批记录动作，空串表示待处理
type ApprovalAction string

const (
	ActionPending  ApprovalAction = ""
	ActionApproved ApprovalAction = "approved"
	ActionRejected ApprovalAction = "rejected"
)

// FormApproval 单步审批记录：记录谁必须审、审了什么、何时审的。
// 同一 (form_id, step_number) 可有多条记录，每个审批人一条。
// action 一旦写入不再变更（pending → approved/rejected，不可逆）。
type FormApproval struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	FormID     string         `gorm:"type:varchar(36);not null;uniqueIndex:uk_form_step_approver;index" json:"form_id"`
	StepNumber int            `gorm:"type:int;not null;uniqueIndex:uk_form_step_approver" json:"step_number"`
	ApproverID string         `gorm:"type:varchar(36);not null;uniqueIndex:uk_form_step_approver;index" json:"approver_id"`
	Action     ApprovalAction `gorm:"type:varchar(20);default:''" json:"action"`
	Comments   string         `gorm:"type:text" json:"comments"`
	ActionDate *time.Time     `json:"action_date,omitempty"`

	// 链外追加的审批人（add-approver注入），added_by 记录注入者
	IsAdditional bool   `gorm:"default:false" json:"is_additional"`
	AddedBy      string `gorm:"type:varchar(36)" json:"added_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (FormApproval) TableName() string {
	return "form_approvals"
}

// IsPending 是否待处理
func (a *FormApproval) IsPending() bool {
	return a.Action == ActionPending
}

// FormWithApproval 查询投影：表单 + 当前用户对应的审批记录
type FormWithApproval struct {
	Form         Form         `json:"form"`
	Approval     FormApproval `json:"approval"`
	TemplateName string       `json:"template_name"`
}
