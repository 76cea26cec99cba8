package repository

import (
	"sort"

	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

type FormRepository struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

// FormListFilter 表单列表查询条件
type FormListFilter struct {
	Status      model.FormStatus
	InitiatorID string // 只看自己发起的
	ViewerID    string // 非管理员：限定为发起的或参与审批的
	IsAdmin     bool
	Page        int
	PageSize    int
}

// FindForms 分页查询表单。
// 管理员看全部；普通用户只看自己发起的和自己出现在审批记录里的。
func (r *FormRepository) FindForms(filter FormListFilter) ([]model.Form, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	query := r.db.Model(&model.Form{}).Preload("Template")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InitiatorID != "" {
		query = query.Where("initiator_id = ?", filter.InitiatorID)
	} else if !filter.IsAdmin {
		query = query.Where(
			"initiator_id = ? OR id IN (?)",
			filter.ViewerID,
			r.db.Model(&model.FormApproval{}).Select("form_id").Where("approver_id = ?", filter.ViewerID),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var forms []model.Form
	err := query.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&forms).Error
	if err != nil {
		return nil, 0, err
	}
	return forms, total, nil
}

func (r *FormRepository) FindFormByID(id string) (*model.Form, error) {
	var form model.Form
	err := r.db.Preload("Template").Preload("Approvals").
		First(&form, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// CanAccess 是否可以查看表单：管理员、发起人、或在任意步骤有审批记录
func (r *FormRepository) CanAccess(form *model.Form, userID string, isAdmin bool) (bool, error) {
	if isAdmin || form.InitiatorID == userID {
		return true, nil
	}
	var count int64
	err := r.db.Model(&model.FormApproval{}).
		Where("form_id = ? AND approver_id = ?", form.ID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// StepApprovals 某一步的审批记录集合
type StepApprovals struct {
	StepNumber int                  `json:"step_number"`
	Approvals  []model.FormApproval `json:"approvals"`
}

// FindApprovalsGroupedByStep 按步骤分组的审批记录，步骤升序
func (r *FormRepository) FindApprovalsGroupedByStep(formID string) ([]StepApprovals, error) {
	var records []model.FormApproval
	err := r.db.Where("form_id = ?", formID).
		Order("step_number ASC, created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[int][]model.FormApproval)
	for _, record := range records {
		grouped[record.StepNumber] = append(grouped[record.StepNumber], record)
	}

	steps := make([]StepApprovals, 0, len(grouped))
	for step, approvals := range grouped {
		steps = append(steps, StepApprovals{StepNumber: step, Approvals: approvals})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })
	return steps, nil
}

// Statistics 统计。管理员看全局，普通用户只看自己相关的。
func (r *FormRepository) Statistics(userID string, isAdmin bool) (*model.FormStatistics, error) {
	stats := &model.FormStatistics{}

	if isAdmin {
		if err := r.db.Model(&model.Form{}).Count(&stats.TotalForms).Error; err != nil {
			return nil, err
		}
		err := r.db.Model(&model.Form{}).
			Where("status IN ?", []model.FormStatus{model.FormStatusPending, model.FormStatusAwaitingFinal}).
			Count(&stats.PendingForms).Error
		if err != nil {
			return nil, err
		}
		if err := r.db.Model(&model.Form{}).Where("status = ?", model.FormStatusCompleted).Count(&stats.CompletedForms).Error; err != nil {
			return nil, err
		}
		if err := r.db.Model(&model.Form{}).Where("status = ?", model.FormStatusRejected).Count(&stats.RejectedForms).Error; err != nil {
			return nil, err
		}

		var templates []model.FormTemplate
		if err := r.db.Where("is_active = ?", true).Find(&templates).Error; err != nil {
			return nil, err
		}
		stats.FormsByType = make(map[string]int64, len(templates))
		for _, template := range templates {
			var count int64
			if err := r.db.Model(&model.Form{}).Where("template_id = ?", template.ID).Count(&count).Error; err != nil {
				return nil, err
			}
			name := template.NameHebrew
			if name == "" {
				name = template.Name
			}
			stats.FormsByType[name] = count
		}
		return stats, nil
	}

	if err := r.db.Model(&model.Form{}).Where("initiator_id = ?", userID).Count(&stats.MyForms).Error; err != nil {
		return nil, err
	}
	err := r.db.Model(&model.FormApproval{}).
		Where("approver_id = ? AND action = ?", userID, model.ActionPending).
		Count(&stats.PendingForMe).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
