package form

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yuvalk87/mofet-forms-app/internal/api/handler"
	"github.com/yuvalk87/mofet-forms-app/internal/api/middleware"
	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
	"github.com/yuvalk87/mofet-forms-app/internal/workflow"
)

// FormHandler 表单实例处理器
type FormHandler struct {
	engine   *workflow.Engine
	formRepo *repository.FormRepository
	userRepo *repository.UserRepository
}

func NewFormHandler(engine *workflow.Engine, formRepo *repository.FormRepository, userRepo *repository.UserRepository) *FormHandler {
	return &FormHandler{
		engine:   engine,
		formRepo: formRepo,
		userRepo: userRepo,
	}
}

// SubmitForm 提交表单
// @Summary 提交表单，创建审批流实例
// @Tags Form
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.SubmitFormRequest true "提交请求"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Router /api/forms [post]
func (h *FormHandler) SubmitForm(c *gin.Context) {
	var req model.SubmitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	initiator, err := h.userRepo.FindUserByID(middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.Error(401, "用户不存在"))
		return
	}

	form, err := h.engine.SubmitForm(c.Request.Context(), initiator, &req)
	if err != nil {
		handler.WriteDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(form))
}

// ListForms 表单列表。
// 管理员看全部；普通用户看自己发起的和参与审批的。
func (h *FormHandler) ListForms(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := repository.FormListFilter{
		Status:   model.FormStatus(c.Query("status")),
		ViewerID: middleware.CurrentUserID(c),
		IsAdmin:  middleware.IsAdmin(c),
		Page:     page,
		PageSize: pageSize,
	}
	if c.Query("my_forms") == "true" {
		filter.InitiatorID = middleware.CurrentUserID(c)
	}

	forms, total, err := h.formRepo.FindForms(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取表单列表失败"))
		return
	}

	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	c.JSON(http.StatusOK, model.Success(model.PaginatedResponse{
		Data:       forms,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}))
}

// GetForm 表单详情，含按步骤分组的审批记录
func (h *FormHandler) GetForm(c *gin.Context) {
	form, err := h.formRepo.FindFormByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "表单不存在"))
		return
	}

	allowed, err := h.formRepo.CanAccess(form, middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "权限检查失败"))
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, model.Error(403, "无权查看该表单"))
		return
	}

	steps, err := h.formRepo.FindApprovalsGroupedByStep(form.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取审批记录失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{
		"form":           form,
		"approval_steps": steps,
	}))
}

// GetStatistics 表单统计
func (h *FormHandler) GetStatistics(c *gin.Context) {
	stats, err := h.formRepo.Statistics(middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取统计失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(stats))
}
