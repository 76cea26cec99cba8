package model

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(data interface{}) Response {
	return Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

func Error(code int, message string) Response {
	return Response{
		Code:    code,
		Message: message,
	}
}

// HandleError 统一错误处理函数，记录详细日志并返回错误响应
func HandleError(c *gin.Context, code int, err error, context ...string) {
	// 获取请求信息
	requestMethod := c.Request.Method
	requestPath := c.Request.URL.Path
	requestQuery := c.Request.URL.RawQuery
	clientIP := c.ClientIP()

	// 获取用户信息（如果有）
	userID := ""
	if uid, exists := c.Get("user_id"); exists {
		userID = fmt.Sprintf("%v", uid)
	}

	// 构建完整的请求URL
	fullURL := requestPath
	if requestQuery != "" {
		fullURL = fmt.Sprintf("%s?%s", requestPath, requestQuery)
	}

	// 构建错误消息
	errorMsg := err.Error()
	if len(context) > 0 {
		errorMsg = fmt.Sprintf("%s: %v", context[0], err)
	}

	logger.Errorf("Request error [%d]: %v\n  Request: %s %s\n  Client IP: %s\n  User ID: %s",
		code, errorMsg, requestMethod, fullURL, clientIP, userID)

	c.JSON(code, Error(code, errorMsg))
}

// PaginatedResponse 分页响应
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// FormStatistics 表单统计
type FormStatistics struct {
	TotalForms     int64            `json:"total_forms,omitempty"`
	PendingForms   int64            `json:"pending_forms,omitempty"`
	CompletedForms int64            `json:"completed_forms,omitempty"`
	RejectedForms  int64            `json:"rejected_forms,omitempty"`
	FormsByType    map[string]int64 `json:"forms_by_type,omitempty"`
	MyForms        int64            `json:"my_forms,omitempty"`
	PendingForMe   int64            `json:"pending_for_me,omitempty"`
}
