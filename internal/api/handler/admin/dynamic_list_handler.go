package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuvalk87/mofet-forms-app/internal/api/middleware"
	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
)

// DynamicListHandler 动态选项列表管理
type DynamicListHandler struct {
	listRepo *repository.DynamicListRepository
}

func NewDynamicListHandler(listRepo *repository.DynamicListRepository) *DynamicListHandler {
	return &DynamicListHandler{listRepo: listRepo}
}

// ListLists 全部列表
func (h *DynamicListHandler) ListLists(c *gin.Context) {
	lists, err := h.listRepo.FindAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "获取列表失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(lists))
}

// GetList 按名称取单个列表
func (h *DynamicListHandler) GetList(c *gin.Context) {
	list, err := h.listRepo.FindByName(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "列表不存在"))
		return
	}
	c.JSON(http.StatusOK, model.Success(list))
}

// UpsertList 创建或覆盖列表
func (h *DynamicListHandler) UpsertList(c *gin.Context) {
	var list model.DynamicList
	if err := c.ShouldBindJSON(&list); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}
	if list.Name == "" {
		c.JSON(http.StatusBadRequest, model.Error(400, "name不能为空"))
		return
	}

	list.UpdatedBy = middleware.CurrentUserID(c)
	if err := h.listRepo.Upsert(&list); err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "保存列表失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(list))
}

// DeleteList 删除列表
func (h *DynamicListHandler) DeleteList(c *gin.Context) {
	if err := h.listRepo.Delete(c.Param("name")); err != nil {
		c.JSON(http.StatusInternalServerError, model.Error(500, "删除列表失败"))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{"message": "列表已删除"}))
}

// fieldTypes 表单设计器支持的字段类型
var fieldTypes = []gin.H{
	{"type": "text", "label": "文本"},
	{"type": "textarea", "label": "多行文本"},
	{"type": "number", "label": "数字"},
	{"type": "date", "label": "日期"},
	{"type": "select", "label": "下拉选择"},
	{"type": "checkbox", "label": "复选框"},
	{"type": "file", "label": "附件"},
}

// GetFieldTypes 字段类型清单
func (h *DynamicListHandler) GetFieldTypes(c *gin.Context) {
	c.JSON(http.StatusOK, model.Success(fieldTypes))
}
