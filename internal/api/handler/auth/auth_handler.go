package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuvalk87/mofet-forms-app/internal/api/middleware"
	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
	authservice "github.com/yuvalk87/mofet-forms-app/internal/service/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService *authservice.AuthService
	userRepo    *repository.UserRepository
}

func NewAuthHandler(authService *authservice.AuthService, userRepo *repository.UserRepository) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userRepo:    userRepo,
	}
}

// Register 用户注册
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "注册请求"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
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

// Login 登录
// @Summary 邮箱密码登录，可能返回 requires_otp
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "登录请求"
// @Success 200 {object} model.Response
// @Failure 401 {object} model.Response
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	resp, err := h.authService.Login(&req, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.Error(401, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(resp))
}

// VerifyOTP 校验短信验证码，换取token
// @Summary 校验登录验证码
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.VerifyOTPRequest true "验证码请求"
// @Success 200 {object} model.Response
// @Failure 401 {object} model.Response
// @Router /api/auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	resp, err := h.authService.VerifyOTP(&req, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.Error(401, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(resp))
}

// Logout 登出。JWT无状态，前端丢弃token即可
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, model.Success(gin.H{"message": "已登出"}))
}

// GetCurrentUser 当前登录用户信息
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	user, err := h.userRepo.FindUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "用户不存在"))
		return
	}

	roleIDs, err := h.userRepo.FindUserRoleIDs(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取用户角色失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(model.UserWithRoles{User: *user, RoleIDs: roleIDs}))
}

// Setup2FA 生成TOTP密钥和二维码
func (h *AuthHandler) Setup2FA(c *gin.Context) {
	secret, qrCode, err := h.authService.Setup2FA(middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{
		"secret":  secret,
		"qr_code": qrCode,
	}))
}

type twoFactorCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Enable2FA 验证动态码并启用两步验证
func (h *AuthHandler) Enable2FA(c *gin.Context) {
	var req twoFactorCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	if err := h.authService.Enable2FA(middleware.CurrentUserID(c), req.Code); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{"message": "两步验证已启用"}))
}

// Disable2FA 关闭两步验证
func (h *AuthHandler) Disable2FA(c *gin.Context) {
	if err := h.authService.Disable2FA(middleware.CurrentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{"message": "两步验证已关闭"}))
}
