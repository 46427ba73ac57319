package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"timetable-composer/pkg/response"
)

// CodeBodyTooLarge 请求体超过上限
const CodeBodyTooLarge = 16016

// BodyLimit 请求体大小限制
//
// 声明的 Content-Length 超限时直接拒绝；未声明长度的请求由 MaxBytesReader 截断，
// 读取时返回 *http.MaxBytesError，由 handler 的参数绑定转换为同一错误码。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, fmt.Sprintf("请求体超过 %d 字节上限", maxBytes))
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
