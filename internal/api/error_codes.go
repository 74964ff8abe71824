// internal/api/error_codes.go
package api

// API错误代码常量
// 分析相关的代码由 internal/errors 的 AppError 提供
const (
	// 通用错误
	ErrorInternalError     = "INTERNAL_ERROR"
	ErrorRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// WebSocket 会话相关错误
	ErrorSubmissionInFlight = "SUBMISSION_IN_FLIGHT"
	ErrorEmptyEntry         = "EMPTY_ENTRY"
	ErrorBadMessage         = "BAD_MESSAGE"
)
