package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
)

// RoleHandler 审批角色管理（管理员）
type RoleHandler struct {
	roleRepo *repository.RoleRepository
}

func NewRoleHandler(roleRepo *repository.RoleRepository) *RoleHandler {
	return &RoleHandler{roleRepo: roleRepo}
}

// ListRoles 角色列表，带成员数
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleRepo.FindAllRoles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取角色列表失败"))
		return
	}

	type roleWithCount struct {
		model.Role
		MemberCount int64 `json:"member_count"`
	}
	result := make([]roleWithCount, 0, len(roles))
	for _, role := range roles {
		count, err := h.roleRepo.CountMembers(role.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, model.Error(500, "统计角色成员失败"))
			return
		}
		result = append(result, roleWithCount{Role: role, MemberCount: count})
	}
	c.JSON(http.StatusOK, model.Success(result))
}

// CreateRole 创建角色
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var role model.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	if role.Name == "" {
		c.JSON(http.StatusBadRequest, model.Error(400, "角色名不能为空"))
		return
	}

	role.ID = 0
	if err := h.roleRepo.CreateRole(&role); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, "创建角色失败，名称可能已存在"))
		return
	}
	c.JSON(http.StatusOK, model.Success(role))
}

// UpdateRole 更新角色
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, "无效的角色ID"))
		return
	}

	existing, err := h.roleRepo.FindRoleByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "角色不存在"))
		return
	}

	var role model.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	role.ID = existing.ID
	role.CreatedAt = existing.CreatedAt

	if err := h.roleRepo.UpdateRole(&role); err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "更新角色失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(role))
}

// DeleteRole 删除角色。还有成员的角色拒绝删除
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, "无效的角色ID"))
		return
	}
	if err := h.roleRepo.DeleteRole(uint(id)); err != nil {
		c.JSON(http.StatusConflict, model.Error(409, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{"message": "角色已删除"}))
}
