package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuvalk87/mofet-forms-app/internal/api/middleware"
	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
	authservice "github.com/yuvalk87/mofet-forms-app/internal/service/auth"
	"github.com/yuvalk87/mofet-forms-app/pkg/casbin"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
)

// UserHandler 用户管理（管理员）
type UserHandler struct {
	userRepo    *repository.UserRepository
	roleRepo    *repository.RoleRepository
	authService *authservice.AuthService
}

func NewUserHandler(userRepo *repository.UserRepository, roleRepo *repository.RoleRepository, authService *authservice.AuthService) *UserHandler {
	return &UserHandler{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		authService: authService,
	}
}

// ListUsers 用户列表
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.FindAllUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取用户列表失败"))
		return
	}

	result := make([]model.UserWithRoles, 0, len(users))
	for _, user := range users {
		roleIDs, err := h.userRepo.FindUserRoleIDs(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, model.Error(500, "获取用户角色失败"))
			return
		}
		result = append(result, model.UserWithRoles{User: user, RoleIDs: roleIDs})
	}
	c.JSON(http.StatusOK, model.Success(result))
}

// ListActiveUsers 活跃用户（追加审批人下拉框用）
func (h *UserHandler) ListActiveUsers(c *gin.Context) {
	users, err := h.userRepo.FindActiveUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取用户列表失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(users))
}

// CreateUser 创建用户
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(user))
}

type updateUserRequest struct {
	FullName   *string `json:"fullName"`
	Phone      *string `json:"phone"`
	Role       *string `json:"role"`
	Status     *string `json:"status"`
	OTPEnabled *bool   `json:"otpEnabled"`
}

// UpdateUser 更新用户资料、状态和系统角色
func (h *UserHandler) UpdateUser(c *gin.Context) {
	user, err := h.userRepo.FindUserByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "用户不存在"))
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		if *req.Role != "admin" && *req.Role != "user" {
			c.JSON(http.StatusBadRequest, model.Error(400, "role必须是admin或user"))
			return
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.OTPEnabled != nil {
		user.OTPEnabled = *req.OTPEnabled
	}

	if err := h.userRepo.UpdateUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "更新用户失败"))
		return
	}

	// 同步casbin的admin角色绑定
	if req.Role != nil {
		var err error
		if *req.Role == "admin" {
			err = casbin.AssignRole(user.ID, "role:admin")
		} else {
			err = casbin.RevokeRole(user.ID, "role:admin")
		}
		if err != nil {
			logger.Warnf("同步casbin角色失败: %v", err)
		}
	}
	c.JSON(http.StatusOK, model.Success(user))
}

// DeleteUser 删除用户
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.CurrentUserID(c) {
		c.JSON(http.StatusBadRequest, model.Error(400, "不能删除自己"))
		return
	}
	if err := h.userRepo.DeleteUser(id); err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "删除用户失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{"message": "用户已删除"}))
}

type assignRolesRequest struct {
	RoleIDs []uint `json:"role_ids"`
}

// AssignRoles 全量设置用户的审批角色
func (h *UserHandler) AssignRoles(c *gin.Context) {
	userID := c.Param("id")
	if _, err := h.userRepo.FindUserByID(userID); err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "用户不存在"))
		return
	}

	var req assignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	// 角色必须都存在
	for _, roleID := range req.RoleIDs {
		if _, err := h.roleRepo.FindRoleByID(roleID); err != nil {
			c.JSON(http.StatusBadRequest, model.Error(400, "角色不存在"))
			return
		}
	}

	if err := h.userRepo.ReplaceUserRoles(userID, req.RoleIDs); err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "设置角色失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{"role_ids": req.RoleIDs}))
}
