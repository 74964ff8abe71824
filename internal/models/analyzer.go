// internal/models/analyzer.go
package models

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// AnalysisRequest 日记分析请求
type AnalysisRequest struct {
	Text string `json:"text" binding:"required" validate:"required"` // 用户的日记原文
}

// AnalysisResult 外部分析服务返回的结果
type AnalysisResult struct {
	Emotion string `json:"emotion"` // 情绪标签
	Advice  string `json:"advice"`  // 以 "- 标签:" 开头的多行建议文本
}

// ParsedAnalysis 从 Advice 文本中解析出的结构化字段
type ParsedAnalysis struct {
	Mood                string `json:"mood"`
	Suggestion          string `json:"suggestion"`
	EmotionalReflection string `json:"emotionalReflection"`
	Keywords            string `json:"keywords"`       // 逗号分隔
	SentimentScore      string `json:"sentimentScore"` // 期望为 1-10 的整数，保留原始字符串
}

// upstreamPayload 用于校验外部响应的结构。
// 指针字段用于区分字段缺失与空字符串。
type upstreamPayload struct {
	Emotion *string `json:"emotion" validate:"required"`
	Advice  *string `json:"advice" validate:"required"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator 返回共享的校验器实例
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate 校验分析请求
func (r *AnalysisRequest) Validate() error {
	return Validator().Struct(r)
}

// mockAdvice 分析服务不可用时展示的固定内容
const mockAdvice = "- Suggestion: Take breaks between study sessions and celebrate small wins\n" +
	"- Emotional Reflection: Feeling overwhelmed by multiple deadlines is normal, acknowledge your effort\n" +
	"- Mood: sadness\n" +
	"- Keywords: app, UI, UX, remake, final exam\n" +
	"- Sentiment Score: 3\n"

// MockAnalysisResult 返回固定的兜底分析结果
func MockAnalysisResult() AnalysisResult {
	return AnalysisResult{
		Emotion: "sadness",
		Advice:  mockAdvice,
	}
}

// DecodeAnalysisResult 解析并校验外部服务返回的 JSON。
// emotion 必须为非空字符串，advice 必须存在。
func DecodeAnalysisResult(body []byte) (*AnalysisResult, error) {
	var payload upstreamPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	if err := Validator().Struct(&payload); err != nil {
		return nil, fmt.Errorf("invalid analysis result: %w", err)
	}

	return &AnalysisResult{
		Emotion: *payload.Emotion,
		Advice:  *payload.Advice,
	}, nil
}
