package form

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yuvalk87/mofet-forms-app/internal/api/middleware"
	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
)

// TemplateHandler 表单模板管理
type TemplateHandler struct {
	templateRepo *repository.FormTemplateRepository
}

func NewTemplateHandler(templateRepo *repository.FormTemplateRepository) *TemplateHandler {
	return &TemplateHandler{templateRepo: templateRepo}
}

// ListTemplates 模板列表。普通用户只看启用的，管理员带 ?all=true 看全部
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	activeOnly := true
	if c.Query("all") == "true" && middleware.IsAdmin(c) {
		activeOnly = false
	}

	templates, err := h.templateRepo.FindTemplates(activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取模板列表失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(templates))
}

// GetTemplate 模板详情
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, "无效的模板ID"))
		return
	}

	template, err := h.templateRepo.FindTemplateByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "模板不存在"))
		return
	}
	c.JSON(http.StatusOK, model.Success(template))
}

// CreateTemplate 创建模板（管理员）
// @Summary 创建表单模板
// @Tags FormTemplate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.FormTemplate true "模板定义"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Router /api/admin/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var template model.FormTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	if template.Name == "" || template.FormType == "" {
		c.JSON(http.StatusBadRequest, model.Error(400, "name和form_type不能为空"))
		return
	}

	template.ID = 0
	template.CreatedBy = middleware.CurrentUserID(c)
	template.IsActive = true
	if err := h.templateRepo.CreateTemplate(&template); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(template))
}

// UpdateTemplate 更新模板（管理员）。有在途表单时审批链锁定
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, "无效的模板ID"))
		return
	}

	existing, err := h.templateRepo.FindTemplateByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "模板不存在"))
		return
	}

	var template model.FormTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	template.ID = existing.ID
	template.CreatedBy = existing.CreatedBy
	template.CreatedAt = existing.CreatedAt

	if err := h.templateRepo.UpdateTemplate(&template); err != nil {
		c.JSON(http.StatusConflict, model.Error(409, err.Error()))
		return
	}
	c.JSON(http.StatusOK, model.Success(template))
}

// DeactivateTemplate 停用模板（管理员），软删除
func (h *TemplateHandler) DeactivateTemplate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, "无效的模板ID"))
		return
	}
	if err := h.templateRepo.DeactivateTemplate(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "停用模板失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{"message": "模板已停用"}))
}
