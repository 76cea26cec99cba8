package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
	"github.com/yuvalk87/mofet-forms-app/pkg/metrics"
)

// Notifier 审批事件通知（尽力送达，不保证恰好一次）
type Notifier interface {
	FormSubmitted(form *model.Form)
	DecisionRecorded(form *model.Form, record *model.FormApproval)
	FormFinalized(form *model.Form)
}

// AdminChecker 管理员能力检查，在引擎边界统一执行一次
type AdminChecker func(actor *model.User) bool

// DefaultAdminChecker 按用户role字段判断
func DefaultAdminChecker(actor *model.User) bool {
	return actor != nil && actor.Role == "admin"
}

// maxTxRetries 存储层瞬时错误（死锁/串行化冲突）的整事务重试上限
const maxTxRetries = 3

// Engine 工作流引擎：组合 Resolver/Ledger/Controller，
// 每个变更操作都是一个原子事务，要么全部提交要么全部回滚。
type Engine struct {
	db         *gorm.DB
	resolver   *Resolver
	ledger     *Ledger
	controller *Controller
	notifier   Notifier     // 可为 nil
	isAdmin    AdminChecker
}

func NewEngine(db *gorm.DB, notifier Notifier, isAdmin AdminChecker) *Engine {
	resolver := NewResolver()
	ledger := NewLedger()
	if isAdmin == nil {
		isAdmin = DefaultAdminChecker
	}
	return &Engine{
		db:         db,
		resolver:   resolver,
		ledger:     ledger,
		controller: NewController(resolver, ledger),
		notifier:   notifier,
		isAdmin:    isAdmin,
	}
}

// SubmitForm 提交表单：创建实例并落地第0步审批人。
// 模板通过 template_id 或 template_type 定位，链为空或解析为空直接失败。
func (e *Engine) SubmitForm(ctx context.Context, initiator *model.User, req *model.SubmitFormRequest) (*model.Form, error) {
	if initiator == nil {
		return nil, fmt.Errorf("%w: missing initiator", ErrValidation)
	}
	if req.TemplateID == 0 && req.TemplateType == "" {
		return nil, fmt.Errorf("%w: either template_id or template_type must be provided", ErrValidation)
	}

	var form *model.Form
	var formType string
	err := e.runInTx(ctx, func(tx *gorm.DB) error {
		template, err := e.findTemplate(tx, req.TemplateID, req.TemplateType)
		if err != nil {
			return err
		}
		formType = template.FormType

		steps, err := template.Steps()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if len(steps) == 0 {
			return fmt.Errorf("%w: template %q has an empty approval chain", ErrValidation, template.FormType)
		}
		for i, step := range steps {
			if err := step.Validate(); err != nil {
				return fmt.Errorf("%w: step %d: %v", ErrValidation, i, err)
			}
		}

		form = &model.Form{
			ID:          uuid.New().String(),
			TemplateID:  template.ID,
			InitiatorID: initiator.ID,
			FormData:    req.FormData,
			Status:      model.FormStatusPending,
			CurrentStep: 0,
		}
		if err := tx.Create(form).Error; err != nil {
			return err
		}

		return e.controller.MaterializeStep(tx, form, template, 0)
	})
	if err != nil {
		return nil, err
	}

	metrics.FormsSubmittedTotal.WithLabelValues(formType).Inc()
	if e.notifier != nil {
		e.notifier.FormSubmitted(form)
	}
	return form, nil
}

// Approve 在当前步通过。
// 台账校验授权与重复提交；该步全部处理完后由控制器推进或收尾。
func (e *Engine) Approve(ctx context.Context, formID, actorID, comments string) (*model.Form, error) {
	return e.decide(ctx, formID, actorID, comments, model.ActionApproved)
}

// Reject 在当前步驳回，后续状态由模板的驳回策略决定。
func (e *Engine) Reject(ctx context.Context, formID, actorID, comments string) (*model.Form, error) {
	return e.decide(ctx, formID, actorID, comments, model.ActionRejected)
}

func (e *Engine) decide(ctx context.Context, formID, actorID, comments string, action model.ApprovalAction) (*model.Form, error) {
	var form *model.Form
	var record *model.FormApproval
	err := e.runInTx(ctx, func(tx *gorm.DB) error {
		var err error
		form, err = e.lockForm(tx, formID)
		if err != nil {
			return err
		}
		if form.Status != model.FormStatusPending {
			return fmt.Errorf("%w: form is %s", ErrInvalidState, form.Status)
		}

		var template model.FormTemplate
		if err := tx.First(&template, form.TemplateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: template %d", ErrNotFound, form.TemplateID)
			}
			return err
		}

		record, err = e.ledger.RecordDecision(tx, form.ID, form.CurrentStep, actorID, action, comments)
		if err != nil {
			return err
		}

		if action == model.ActionApproved {
			return e.controller.OnStepApproved(tx, form, &template)
		}
		return e.controller.OnStepRejected(tx, form, &template)
	})
	if err != nil {
		return nil, err
	}

	metrics.ApprovalDecisionsTotal.WithLabelValues(string(action)).Inc()
	if form.Status.IsTerminal() {
		metrics.FormsCompletedTotal.WithLabelValues(string(form.Status)).Inc()
	}
	if e.notifier != nil {
		e.notifier.DecisionRecorded(form, record)
	}
	return form, nil
}

// AddApprover 在当前步追加审批人。
// 授权：管理员，或操作人自己在当前步有审批记录。被追加人必须存在且活跃。
// 不改变表单状态。
func (e *Engine) AddApprover(ctx context.Context, formID string, actor *model.User, approverID string) (*model.FormApproval, error) {
	if approverID == "" {
		return nil, fmt.Errorf("%w: missing approver_id", ErrValidation)
	}

	var record *model.FormApproval
	err := e.runInTx(ctx, func(tx *gorm.DB) error {
		form, err := e.lockForm(tx, formID)
		if err != nil {
			return err
		}
		if form.Status != model.FormStatusPending {
			return fmt.Errorf("%w: form is %s", ErrInvalidState, form.Status)
		}

		if !e.isAdmin(actor) {
			authorized, err := e.ledger.HasRecordAtStep(tx, form.ID, form.CurrentStep, actor.ID)
			if err != nil {
				return err
			}
			if !authorized {
				return fmt.Errorf("%w: not an approver at the current step", ErrNotAuthorized)
			}
		}

		var approver model.User
		if err := tx.Where("id = ?", approverID).First(&approver).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: approver %s", ErrNotFound, approverID)
			}
			return err
		}
		if !approver.IsActive() {
			return fmt.Errorf("%w: approver %s is not active", ErrValidation, approverID)
		}

		record, err = e.ledger.AddAdditionalApprover(tx, form.ID, form.CurrentStep, approverID, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// FinalApprove 发起人最终确认
func (e *Engine) FinalApprove(ctx context.Context, formID, actorID string) (*model.Form, error) {
	var form *model.Form
	err := e.runInTx(ctx, func(tx *gorm.DB) error {
		var err error
		form, err = e.lockForm(tx, formID)
		if err != nil {
			return err
		}
		return e.controller.Finalize(tx, form, actorID)
	})
	if err != nil {
		return nil, err
	}

	metrics.FormsCompletedTotal.WithLabelValues(string(form.Status)).Inc()
	if e.notifier != nil {
		e.notifier.FormFinalized(form)
	}
	return form, nil
}

// PendingFor 待某用户审批的表单（含对应审批记录）
func (e *Engine) PendingFor(ctx context.Context, userID string) ([]model.FormWithApproval, error) {
	var records []model.FormApproval
	err := e.db.WithContext(ctx).
		Where("approver_id = ? AND action = ?", userID, model.ActionPending).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	result := make([]model.FormWithApproval, 0, len(records))
	for _, record := range records {
		var form model.Form
		err := e.db.WithContext(ctx).Preload("Template").
			Where("id = ? AND status = ? AND current_step = ?", record.FormID, model.FormStatusPending, record.StepNumber).
			First(&form).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 该记录不在表单的当前步（后续步或已结束），不属于待办
				continue
			}
			return nil, err
		}
		result = append(result, model.FormWithApproval{
			Form:         form,
			Approval:     record,
			TemplateName: form.Template.Name,
		})
	}
	return result, nil
}

// HistoryFor 某用户已处理的审批历史，按处理时间倒序
func (e *Engine) HistoryFor(ctx context.Context, userID string, limit int) ([]model.FormWithApproval, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []model.FormApproval
	err := e.db.WithContext(ctx).
		Where("approver_id = ? AND action <> ?", userID, model.ActionPending).
		Order("action_date DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	result := make([]model.FormWithApproval, 0, len(records))
	for _, record := range records {
		var form model.Form
		if err := e.db.WithContext(ctx).Preload("Template").First(&form, "id = ?", record.FormID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, model.FormWithApproval{
			Form:         form,
			Approval:     record,
			TemplateName: form.Template.Name,
		})
	}
	return result, nil
}

// lockForm 在事务内加行锁读取表单，串行化同一表单上的并发操作
func (e *Engine) lockForm(tx *gorm.DB, formID string) (*model.Form, error) {
	if formID == "" {
		return nil, fmt.Errorf("%w: missing form id", ErrValidation)
	}
	var form model.Form
	query := tx
	// SQLite不支持FOR UPDATE，整库单写锁本身已串行化
	if tx.Dialector.Name() != "sqlite" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.First(&form, "id = ?", formID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: form %s", ErrNotFound, formID)
		}
		return nil, err
	}
	return &form, nil
}

func (e *Engine) findTemplate(tx *gorm.DB, templateID uint, templateType string) (*model.FormTemplate, error) {
	var template model.FormTemplate
	query := tx.Where("is_active = ?", true)
	if templateID != 0 {
		query = query.Where("id = ?", templateID)
	} else {
		query = query.Where("form_type = ?", templateType)
	}
	if err := query.First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: form template", ErrNotFound)
		}
		return nil, err
	}
	return &template, nil
}

// runInTx 原子执行。领域错误直接回滚上抛；
// 死锁/串行化冲突等瞬时存储错误整事务有界重试。
func (e *Engine) runInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= maxTxRetries; attempt++ {
		if attempt > 0 {
			metrics.TxRetriesTotal.Inc()
			logger.Warnf("retrying workflow transaction after transient error (attempt %d/%d): %v", attempt, maxTxRetries, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		err = e.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isTransientErr(err) {
			return err
		}
	}
	return err
}

// isTransientErr 是否为可重试的存储层瞬时错误。
// 领域错误一律不重试。
func isTransientErr(err error) bool {
	if err == nil || IsDomainError(err) {
		return false
	}

	// MySQL: 1213 死锁, 1205 锁等待超时
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}

	// PostgreSQL: 40001 串行化失败, 40P01 死锁
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}

	return false
}
