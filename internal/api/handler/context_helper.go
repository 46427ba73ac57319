package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timetable-composer/internal/api/middleware"
	"timetable-composer/internal/service"
	"timetable-composer/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// officerContext 返回携带当前排课人员的请求 ctx，工作区只对其创建者可见
func officerContext(c *gin.Context) (context.Context, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return nil, false
	}
	return service.WithOfficer(c.Request.Context(), userID), true
}

// bindJSON 绑定请求体；超出 BodyLimit 上限时返回 413，其余绑定失败返回 400
func bindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, middleware.CodeBodyTooLarge, "请求体过大")
		return false
	}
	response.BadRequest(c, 10001, "参数校验失败")
	return false
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
