// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 客户端输入错误
	ErrorTypeValidation ErrorType = "validation_error"
	// 外部分析服务调用失败（网络错误或非 2xx 状态）
	ErrorTypeUpstream ErrorType = "upstream_error"
	// 外部分析服务返回了不符合约定的数据
	ErrorTypeMalformedUpstream ErrorType = "malformed_upstream"
	// 会话状态冲突，例如重复提交
	ErrorTypeConflict ErrorType = "conflict"
)

// 对外暴露的错误代码
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeAnalysisFailed = "ANALYSIS_FAILED"
	CodeConflict       = "CONFLICT"
	CodeUnknown        = "UNKNOWN_ERROR"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 对外暴露的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewUpstreamError 创建外部服务错误
func NewUpstreamError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstream, message, originalError)
}

// NewMalformedUpstreamError 创建外部响应格式错误
func NewMalformedUpstreamError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeMalformedUpstream, message, originalError)
}

// NewConflictError 创建冲突错误
func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUpstreamError 检查是否为外部服务错误，格式错误也算在内
func IsUpstreamError(err error) bool {
	return hasType(err, ErrorTypeUpstream) || hasType(err, ErrorTypeMalformedUpstream)
}

// IsConflictError 检查是否为冲突错误
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

func hasType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// CodeOf 返回错误代码，非 AppError 返回 UNKNOWN_ERROR
func CodeOf(err error) string {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Code
	}
	return CodeUnknown
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return CodeInvalidRequest
	case ErrorTypeUpstream, ErrorTypeMalformedUpstream:
		return CodeAnalysisFailed
	case ErrorTypeConflict:
		return CodeConflict
	default:
		return CodeUnknown
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 已经是 AppError 时保留原类型和代码
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
