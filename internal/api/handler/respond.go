package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/workflow"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
)

// WriteDomainError 把工作流领域错误映射为HTTP状态码。
// 非领域错误一律按500处理并记日志。
func WriteDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrValidation), errors.Is(err, workflow.ErrResolutionEmpty):
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
	case errors.Is(err, workflow.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, model.Error(403, err.Error()))
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, model.Error(404, err.Error()))
	case errors.Is(err, workflow.ErrAlreadyDecided), errors.Is(err, workflow.ErrDuplicateApprover):
		c.JSON(http.StatusConflict, model.Error(409, err.Error()))
	case errors.Is(err, workflow.ErrInvalidState):
		c.JSON(http.StatusConflict, model.Error(409, err.Error()))
	default:
		logger.Errorf("请求处理失败: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, model.Error(500, "服务器内部错误"))
	}
}
