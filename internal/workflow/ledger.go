package workflow

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

// Ledger 审批台账：表单每一步的审批记录集合。
// 所有方法都在调用方的事务里执行。
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// MaterializeStep 为某一步落地审批记录，每个审批人一条 pending 记录。
// 幂等：(form_id, step_number, approver_id) 已存在则跳过，重试落地不会产生重复记录。
func (l *Ledger) MaterializeStep(tx *gorm.DB, formID string, stepNumber int, approverIDs []string) error {
	for _, approverID := range approverIDs {
		var count int64
		err := tx.Model(&model.FormApproval{}).
			Where("form_id = ? AND step_number = ? AND approver_id = ?", formID, stepNumber, approverID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		record := model.FormApproval{
			FormID:     formID,
			StepNumber: stepNumber,
			ApproverID: approverID,
			Action:     model.ActionPending,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

// RecordDecision 写入审批决策。
// 无匹配记录 → ErrNotAuthorized；已有决策 → ErrAlreadyDecided（防双重提交）。
// action 一旦写入不再变更。
func (l *Ledger) RecordDecision(tx *gorm.DB, formID string, stepNumber int, approverID string, action model.ApprovalAction, comments string) (*model.FormApproval, error) {
	var record model.FormApproval
	err := tx.Where("form_id = ? AND step_number = ? AND approver_id = ?", formID, stepNumber, approverID).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: no approval record for user at step %d", ErrNotAuthorized, stepNumber)
		}
		return nil, err
	}
	if !record.IsPending() {
		return nil, fmt.Errorf("%w: already %s", ErrAlreadyDecided, record.Action)
	}

	now := time.Now()
	record.Action = action
	record.Comments = comments
	record.ActionDate = &now
	if err := tx.Save(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// IsStepComplete 该步是否所有审批记录都已处理完
func (l *Ledger) IsStepComplete(tx *gorm.DB, formID string, stepNumber int) (bool, error) {
	var pending int64
	err := tx.Model(&model.FormApproval{}).
		Where("form_id = ? AND step_number = ? AND action = ?", formID, stepNumber, model.ActionPending).
		Count(&pending).Error
	if err != nil {
		return false, err
	}
	return pending == 0, nil
}

// AddAdditionalApprover 在某一步追加审批人。
// 该审批人在这一步已有记录（无论状态）→ ErrDuplicateApprover。
func (l *Ledger) AddAdditionalApprover(tx *gorm.DB, formID string, stepNumber int, approverID, addedBy string) (*model.FormApproval, error) {
	var count int64
	err := tx.Model(&model.FormApproval{}).
		Where("form_id = ? AND step_number = ? AND approver_id = ?", formID, stepNumber, approverID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateApprover
	}

	record := model.FormApproval{
		FormID:       formID,
		StepNumber:   stepNumber,
		ApproverID:   approverID,
		Action:       model.ActionPending,
		IsAdditional: true,
		AddedBy:      addedBy,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ReopenStep 把某一步的全部审批记录重置为 pending，rewind 驳回策略回退时调用。
// 否则回退后的那一步记录仍是已决策状态，表单会卡死。
func (l *Ledger) ReopenStep(tx *gorm.DB, formID string, stepNumber int) error {
	return tx.Model(&model.FormApproval{}).
		Where("form_id = ? AND step_number = ?", formID, stepNumber).
		Updates(map[string]interface{}{
			"action":      model.ActionPending,
			"action_date": nil,
		}).Error
}

// HasRecordAtStep 操作人在该步是否已有审批记录（任意状态），add-approver 的授权依据之一
func (l *Ledger) HasRecordAtStep(tx *gorm.DB, formID string, stepNumber int, approverID string) (bool, error) {
	var count int64
	err := tx.Model(&model.FormApproval{}).
		Where("form_id = ? AND step_number = ? AND approver_id = ?", formID, stepNumber, approverID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
