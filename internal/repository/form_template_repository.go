package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

type FormTemplateRepository struct {
	db *gorm.DB
}

func NewFormTemplateRepository(db *gorm.DB) *FormTemplateRepository {
	return &FormTemplateRepository{db: db}
}

// CreateTemplate 创建模板，审批链必须合法且非空
func (r *FormTemplateRepository) CreateTemplate(template *model.FormTemplate) error {
	if err := validateChain(template); err != nil {
		return err
	}
	return r.db.Create(template).Error
}

func (r *FormTemplateRepository) FindTemplateByID(id uint) (*model.FormTemplate, error) {
	var template model.FormTemplate
	if err := r.db.First(&template, id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *FormTemplateRepository) FindTemplateByType(formType string) (*model.FormTemplate, error) {
	var template model.FormTemplate
	if err := r.db.Where("form_type = ?", formType).First(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *FormTemplateRepository) FindTemplates(activeOnly bool) ([]model.FormTemplate, error) {
	var templates []model.FormTemplate
	query := r.db.Order("id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// CountInFlightForms 引用该模板且未到终态的表单数
func (r *FormTemplateRepository) CountInFlightForms(templateID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Form{}).
		Where("template_id = ? AND status IN ?", templateID,
			[]model.FormStatus{model.FormStatusPending, model.FormStatusAwaitingFinal}).
		Count(&count).Error
	return count, err
}

// UpdateTemplate 更新模板。还有在途表单时不允许改审批链，
// 避免改动影响已落地的步骤语义。
func (r *FormTemplateRepository) UpdateTemplate(template *model.FormTemplate) error {
	if err := validateChain(template); err != nil {
		return err
	}

	existing, err := r.FindTemplateByID(template.ID)
	if err != nil {
		return err
	}
	if string(existing.ApprovalChain) != string(template.ApprovalChain) {
		inflight, err := r.CountInFlightForms(template.ID)
		if err != nil {
			return err
		}
		if inflight > 0 {
			return fmt.Errorf("template %d has %d forms in flight, approval chain is locked", template.ID, inflight)
		}
	}
	return r.db.Save(template).Error
}

// DeactivateTemplate 软停用，已提交的表单不受影响
func (r *FormTemplateRepository) DeactivateTemplate(id uint) error {
	return r.db.Model(&model.FormTemplate{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func validateChain(template *model.FormTemplate) error {
	steps, err := template.Steps()
	if err != nil {
		return fmt.Errorf("invalid approval chain: %w", err)
	}
	if len(steps) == 0 {
		return fmt.Errorf("approval chain must contain at least one step")
	}
	for i, step := range steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("approval chain step %d: %w", i, err)
		}
	}
	return nil
}
