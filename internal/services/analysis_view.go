// internal/services/analysis_view.go
package services

import (
	"strings"

	"github.com/Corphon/PixelDiary/internal/models"
)

// SentimentCells 情绪分数条的格子数
const SentimentCells = 10

// moodEmojis 情绪标签对应的表情
var moodEmojis = map[string]string{
	"sadness":   "😢",
	"joy":       "😄",
	"happiness": "😊",
	"anger":     "😠",
	"fear":      "😨",
	"surprise":  "😲",
	"neutral":   "😐",
}

const defaultMoodEmoji = "🤔"

// AnalysisView 页面渲染用的分析结果
type AnalysisView struct {
	Mood                string   `json:"mood"`
	MoodEmoji           string   `json:"moodEmoji"`
	Suggestion          string   `json:"suggestion,omitempty"`
	EmotionalReflection string   `json:"emotionalReflection,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	SentimentScore      string   `json:"sentimentScore,omitempty"`
	SentimentBar        []bool   `json:"sentimentBar,omitempty"` // true 表示该格已点亮
}

// MoodEmoji 返回情绪标签对应的表情，大小写不敏感
func MoodEmoji(mood string) string {
	if emoji, ok := moodEmojis[strings.ToLower(mood)]; ok {
		return emoji
	}
	return defaultMoodEmoji
}

// SentimentLevel 读取分数开头的整数部分。
// 与浏览器 parseInt 一致：忽略前导空白，允许正负号，遇到非数字停止。
func SentimentLevel(score string) (int, bool) {
	s := strings.TrimLeft(score, " \t\r\n")
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	level, digits := 0, 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		if level < 1000 {
			level = level*10 + int(s[digits]-'0')
		}
	}
	if digits == 0 {
		return 0, false
	}
	if negative {
		level = -level
	}
	return level, true
}

// BuildAnalysisView 把解析结果转换为页面视图
func BuildAnalysisView(parsed models.ParsedAnalysis) *AnalysisView {
	view := &AnalysisView{
		Mood:                parsed.Mood,
		MoodEmoji:           MoodEmoji(parsed.Mood),
		Suggestion:          parsed.Suggestion,
		EmotionalReflection: parsed.EmotionalReflection,
		Keywords:            SplitKeywords(parsed.Keywords),
		SentimentScore:      parsed.SentimentScore,
	}

	if parsed.SentimentScore != "" {
		level, ok := SentimentLevel(parsed.SentimentScore)
		view.SentimentBar = make([]bool, SentimentCells)
		for i := range view.SentimentBar {
			view.SentimentBar[i] = ok && i+1 <= level
		}
	}

	return view
}
