// internal/services/advice_parser.go
package services

import (
	"strings"

	"github.com/Corphon/PixelDiary/internal/models"
)

// 建议文本中识别的标记及其需要去掉的前缀
const (
	markerSuggestion          = "Suggestion:"
	markerEmotionalReflection = "Emotional Reflection:"
	markerKeywords            = "Keywords:"
	markerSentimentScore      = "Sentiment Score:"
)

// ParseAdvice 逐行扫描建议文本并提取各字段。
// 每一行只匹配第一个命中的标记；同一标记出现多次时以最后一行为准。
func ParseAdvice(advice, emotion string) models.ParsedAnalysis {
	result := models.ParsedAnalysis{Mood: emotion}

	for _, line := range strings.Split(advice, "\n") {
		switch {
		case strings.Contains(line, markerSuggestion):
			result.Suggestion = stripLabel(line, markerSuggestion)
		case strings.Contains(line, markerEmotionalReflection):
			result.EmotionalReflection = stripLabel(line, markerEmotionalReflection)
		case strings.Contains(line, markerKeywords):
			result.Keywords = stripLabel(line, markerKeywords)
		case strings.Contains(line, markerSentimentScore):
			result.SentimentScore = stripLabel(line, markerSentimentScore)
		}
	}

	return result
}

// ParseAnalysisResult 解析外部服务的完整结果
func ParseAnalysisResult(result models.AnalysisResult) models.ParsedAnalysis {
	return ParseAdvice(result.Advice, result.Emotion)
}

// stripLabel 去掉第一处 "- <marker>" 前缀并裁剪空白
func stripLabel(line, marker string) string {
	return strings.TrimSpace(strings.Replace(line, "- "+marker, "", 1))
}

// SplitKeywords 把逗号分隔的关键词拆成标签
func SplitKeywords(keywords string) []string {
	if keywords == "" {
		return nil
	}

	parts := strings.Split(keywords, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tags = append(tags, strings.TrimSpace(part))
	}
	return tags
}
