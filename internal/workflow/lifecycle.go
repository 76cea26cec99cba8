package workflow

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
)

// Controller 表单生命周期控制器：唯一允许变更表单状态和 current_step 的地方。
//
// 状态机：
//
//	pending → awaiting_final_approval → completed
//	pending → rejected
//	pending → pending（rewind驳回策略下回退 current_step）
type Controller struct {
	resolver *Resolver
	ledger   *Ledger
}

func NewController(resolver *Resolver, ledger *Ledger) *Controller {
	return &Controller{resolver: resolver, ledger: ledger}
}

// MaterializeStep 通过解析器+台账为指定步骤落地审批人。
// 角色解析为空时报 ErrResolutionEmpty，让整个事务回滚，
// 避免表单停在一个无人可审的步骤上。
func (c *Controller) MaterializeStep(tx *gorm.DB, form *model.Form, template *model.FormTemplate, stepNumber int) error {
	steps, err := template.Steps()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if stepNumber < 0 || stepNumber >= len(steps) {
		return fmt.Errorf("%w: step %d out of range (chain length %d)", ErrInvalidState, stepNumber, len(steps))
	}

	approvers, err := c.resolver.Resolve(tx, steps[stepNumber], template.NormalizedApproveMode())
	if err != nil {
		return err
	}
	if len(approvers) == 0 {
		logger.Errorf("form %s: step %d of template %d resolved to no active approvers", form.ID, stepNumber, template.ID)
		return fmt.Errorf("%w: form %s step %d", ErrResolutionEmpty, form.ID, stepNumber)
	}

	if err := c.ledger.MaterializeStep(tx, form.ID, stepNumber, approvers); err != nil {
		return err
	}

	// rewind驳回后重新推进到这一步时，旧记录全是已决策状态（含当初的驳回），
	// 不重开整步的话唯一审批人会报 ErrAlreadyDecided，表单永远卡在 pending。
	done, err := c.ledger.IsStepComplete(tx, form.ID, stepNumber)
	if err != nil {
		return err
	}
	if done {
		return c.ledger.ReopenStep(tx, form.ID, stepNumber)
	}
	return nil
}

// OnStepApproved 一次通过决策落账后的状态转移。
// 该步未完成：状态不变，等其余审批人。
// 该步完成：是最后一步则进入 awaiting_final_approval；否则推进并落地下一步。
func (c *Controller) OnStepApproved(tx *gorm.DB, form *model.Form, template *model.FormTemplate) error {
	complete, err := c.ledger.IsStepComplete(tx, form.ID, form.CurrentStep)
	if err != nil {
		return err
	}
	if !complete {
		return nil
	}

	if form.CurrentStep >= template.ChainLength()-1 {
		// 审批链走完，交回发起人做最终确认
		form.Status = model.FormStatusAwaitingFinal
		return tx.Save(form).Error
	}

	form.CurrentStep++
	if err := tx.Save(form).Error; err != nil {
		return err
	}
	return c.MaterializeStep(tx, form, template, form.CurrentStep)
}

// OnStepRejected 一次驳回决策落账后的状态转移。
// terminate（默认）：立即终态 rejected，盖上 completed_at。
// rewind：回退一步保持 pending，仅在第0步驳回时终态。
func (c *Controller) OnStepRejected(tx *gorm.DB, form *model.Form, template *model.FormTemplate) error {
	if template.NormalizedRejectPolicy() == model.RejectPolicyRewind && form.CurrentStep > 0 {
		form.CurrentStep--
		form.Status = model.FormStatusPending
		if err := c.ledger.ReopenStep(tx, form.ID, form.CurrentStep); err != nil {
			return err
		}
		return tx.Save(form).Error
	}

	now := time.Now()
	form.Status = model.FormStatusRejected
	form.CompletedAt = &now
	return tx.Save(form).Error
}

// Finalize 发起人最终确认：awaiting_final_approval → completed。
// 仅发起人可操作；状态不对报 ErrInvalidState。
func (c *Controller) Finalize(tx *gorm.DB, form *model.Form, actorID string) error {
	if form.InitiatorID != actorID {
		return fmt.Errorf("%w: only the initiator can finalize", ErrNotAuthorized)
	}
	if form.Status != model.FormStatusAwaitingFinal {
		return fmt.Errorf("%w: form is %s, not awaiting final approval", ErrInvalidState, form.Status)
	}

	now := time.Now()
	form.Status = model.FormStatusCompleted
	form.CompletedAt = &now
	return tx.Save(form).Error
}
