package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) CreateRole(role *model.Role) error {
	return r.db.Create(role).Error
}

func (r *RoleRepository) FindRoleByID(id uint) (*model.Role, error) {
	var role model.Role
	if err := r.db.First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepository) FindRoleByName(name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepository) FindAllRoles() ([]model.Role, error) {
	var roles []model.Role
	if err := r.db.Order("id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepository) UpdateRole(role *model.Role) error {
	return r.db.Save(role).Error
}

// CountMembers 持有该角色的用户数
func (r *RoleRepository) CountMembers(roleID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.UserRole{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}

// DeleteRole 删除角色。仍有成员的角色不允许删除，
// 否则引用它的审批链步骤会解析为空。
func (r *RoleRepository) DeleteRole(id uint) error {
	count, err := r.CountMembers(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("role %d still has %d members", id, count)
	}
	return r.db.Delete(&model.Role{}, id).Error
}
