package workflow

import "errors"

// 领域错误。全部在引擎边界被捕获并映射到HTTP错误码，
// 属于逻辑错误，一律不重试（与存储层瞬时错误区分）。
var (
	// ErrValidation 请求缺失/非法
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthorized 当前操作人在该步没有待处理的审批记录，或无权限
	ErrNotAuthorized = errors.New("not authorized for this action")

	// ErrNotFound 表单/模板/审批记录/用户不存在
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyDecided 审批记录已有决策，拒绝重复提交
	ErrAlreadyDecided = errors.New("approval already decided")

	// ErrDuplicateApprover 审批人在该步已有记录
	ErrDuplicateApprover = errors.New("approver already assigned to this step")

	// ErrInvalidState 表单状态不满足操作前置条件
	ErrInvalidState = errors.New("invalid form state for this action")

	// ErrResolutionEmpty 角色步骤解析不到任何活跃审批人。
	// 必须显式上抛：否则表单会永远停在无人可审的一步。
	ErrResolutionEmpty = errors.New("approval step resolved to no active approvers")
)

// IsDomainError 是否为领域错误（用于与瞬时存储错误区分）
func IsDomainError(err error) bool {
	for _, domain := range []error{
		ErrValidation,
		ErrNotAuthorized,
		ErrNotFound,
		ErrAlreadyDecided,
		ErrDuplicateApprover,
		ErrInvalidState,
		ErrResolutionEmpty,
	} {
		if errors.Is(err, domain) {
			return true
		}
	}
	return false
}
