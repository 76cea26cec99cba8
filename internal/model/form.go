package model

import (
	"time"

	"gorm.io/datatypes"
)

// FormStatus 表单状态
type FormStatus string

const (
	FormStatusPending FormStatus = "pending" // 审批链进行中
	// FormStatusAwaitingFinal 审批链走完，等待发起人最终确认
	FormStatusAwaitingFinal FormStatus = "awaiting_final_approval"
	// FormStatusApproved 历史数据兼容值：旧流程在链走完后直接置为 approved。
	// 当前流程不再写入该状态，读取时与 awaiting_final_approval 同级对待。
	FormStatusApproved  FormStatus = "approved"
	FormStatusCompleted FormStatus = "completed" // 终态：发起人已确认
	FormStatusRejected  FormStatus = "rejected"  // 终态：已驳回
)

// IsTerminal 是否终态
func (s FormStatus) IsTerminal() bool {
	return s == FormStatusCompleted || s == FormStatusRejected
}

// Form 表单实例，状态只由生命周期控制器变更，不做物理删除
type Form struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TemplateID  uint           `gorm:"not null;index" json:"template_id"`
	InitiatorID string         `gorm:"type:varchar(36);not null;index" json:"initiator_id"`
	FormData    datatypes.JSON `gorm:"type:json" json:"form_data"`
	Status      FormStatus     `gorm:"type:varchar(30);default:pending;index" json:"status"`
	CurrentStep int            `gorm:"type:int;default:0" json:"current_step"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`

	Template  FormTemplate   `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Approvals []FormApproval `gorm:"foreignKey:FormID" json:"approvals,omitempty"`
}

// TableName 指定表名
func (Form) TableName() string {
	return "forms"
}

// SubmitFormRequest 提交表单请求，template_id 与 template_type 二选一
type SubmitFormRequest struct {
	TemplateID   uint           `json:"template_id"`
	TemplateType string         `json:"template_type"`
	FormData     datatypes.JSON `json:"form_data"`
}

// DecisionRequest 审批/驳回请求
type DecisionRequest struct {
	Comments string `json:"comments"`
}

// AddApproverRequest 追加审批人请求，approver_id 与 approver_email 二选一
type AddApproverRequest struct {
	ApproverID    string `json:"approver_id"`
	ApproverEmail string `json:"approver_email"`
}
