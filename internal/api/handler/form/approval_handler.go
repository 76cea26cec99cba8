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

// ApprovalHandler 审批动作处理器
type ApprovalHandler struct {
	engine   *workflow.Engine
	userRepo *repository.UserRepository
}

func NewApprovalHandler(engine *workflow.Engine, userRepo *repository.UserRepository) *ApprovalHandler {
	return &ApprovalHandler{
		engine:   engine,
		userRepo: userRepo,
	}
}

// Approve 审批通过
// @Summary 在当前步审批通过
// @Tags Approval
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "表单ID"
// @Param request body model.DecisionRequest false "审批意见"
// @Success 200 {object} model.Response
// @Failure 403 {object} model.Response
// @Failure 409 {object} model.Response
// @Router /api/forms/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	var req model.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	form, err := h.engine.Approve(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req.Comments)
	if err != nil {
		handler.WriteDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(form))
}

// Reject 审批驳回
// @Summary 在当前步驳回
// @Tags Approval
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "表单ID"
// @Param request body model.DecisionRequest false "驳回原因"
// @Success 200 {object} model.Response
// @Failure 403 {object} model.Response
// @Failure 409 {object} model.Response
// @Router /api/forms/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var req model.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	form, err := h.engine.Reject(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req.Comments)
	if err != nil {
		handler.WriteDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(form))
}

// AddApprover 在当前步追加审批人
func (h *ApprovalHandler) AddApprover(c *gin.Context) {
	var req model.AddApproverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	actor, err := h.userRepo.FindUserByID(middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.Error(401, "用户不存在"))
		return
	}

	// 支持按ID或邮箱指定被追加人
	approverID := req.ApproverID
	if approverID == "" && req.ApproverEmail != "" {
		approver, err := h.userRepo.FindUserByEmail(req.ApproverEmail)
		if err != nil {
			c.JSON(http.StatusNotFound, model.Error(404, "审批人不存在"))
			return
		}
		approverID = approver.ID
	}

	record, err := h.engine.AddApprover(c.Request.Context(), c.Param("id"), actor, approverID)
	if err != nil {
		handler.WriteDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(record))
}

// FinalApprove 发起人最终确认
func (h *ApprovalHandler) FinalApprove(c *gin.Context) {
	form, err := h.engine.FinalApprove(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		handler.WriteDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(form))
}

// MyApprovals 待我审批的表单
func (h *ApprovalHandler) MyApprovals(c *gin.Context) {
	items, err := h.engine.PendingFor(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取待办失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(items))
}

// ApprovalHistory 我的审批历史
func (h *ApprovalHandler) ApprovalHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.engine.HistoryFor(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取审批历史失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(items))
}
