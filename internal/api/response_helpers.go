// internal/api/response_helpers.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RawJSON 原样写出已序列化的 JSON
func (rh *ResponseHelper) RawJSON(c *gin.Context, body []byte) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, &ErrorResponse{
		Error:     message,
		Code:      errorCode,
		RequestID: rh.getRequestID(c),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, errorCode, message string) {
	rh.Error(c, http.StatusBadRequest, errorCode, message)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, errorCode, message string) {
	rh.Error(c, http.StatusInternalServerError, errorCode, message)
}

// TooManyRequests 429错误响应，并中断后续处理
func (rh *ResponseHelper) TooManyRequests(c *gin.Context) {
	rh.Error(c, http.StatusTooManyRequests, ErrorRateLimitExceeded, "Rate limit exceeded")
	c.Abort()
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
