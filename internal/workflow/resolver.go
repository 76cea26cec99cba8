package workflow

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

// Resolver 审批人解析器：把步骤定义解析为具体审批人ID列表。
// 只读，无副作用；空结果不在这里报错，由调用方决定是否致命。
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve 解析步骤定义。
// 角色步骤：返回持有该角色的全部活跃用户，按用户ID升序保证稳定顺序；
// mode=first 时只取第一个。用户步骤：该用户活跃则返回单元素，否则为空。
func (r *Resolver) Resolve(tx *gorm.DB, spec model.StepSpec, mode model.ApproveMode) ([]string, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	switch spec.Type {
	case model.StepTypeUser:
		var user model.User
		err := tx.Select("id, status").Where("id = ?", spec.UserID).First(&user).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil
			}
			return nil, err
		}
		if !user.IsActive() {
			return nil, nil
		}
		return []string{user.ID}, nil

	case model.StepTypeRole:
		var ids []string
		query := tx.Model(&model.User{}).
			Select("users.id").
			Joins("JOIN user_roles ON user_roles.user_id = users.id").
			Where("user_roles.role_id = ? AND users.status = ?", spec.RoleID, "active").
			Order("users.id ASC")
		if mode == model.ApproveModeFirst {
			query = query.Limit(1)
		}
		if err := query.Pluck("users.id", &ids).Error; err != nil {
			return nil, err
		}
		return ids, nil
	}

	return nil, fmt.Errorf("%w: unknown step type %q", ErrValidation, spec.Type)
}
