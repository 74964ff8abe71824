package services

import (
	"reflect"
	"testing"

	"github.com/Corphon/PixelDiary/internal/models"
)

func TestMoodEmoji(t *testing.T) {
	tests := map[string]string{
		"sadness":  "😢",
		"Joy":      "😄",
		"NEUTRAL":  "😐",
		"surprise": "😲",
		"boredom":  "🤔",
		"":         "🤔",
	}
	for mood, want := range tests {
		if got := MoodEmoji(mood); got != want {
			t.Errorf("MoodEmoji(%q) = %s, want %s", mood, got, want)
		}
	}
}

func TestSentimentLevel(t *testing.T) {
	tests := []struct {
		in    string
		level int
		ok    bool
	}{
		{"7", 7, true},
		{" 3", 3, true},
		{"8/10", 8, true},
		{"-2", -2, true},
		{"10", 10, true},
		{"seven", 0, false},
		{"", 0, false},
		{"+", 0, false},
	}
	for _, tt := range tests {
		level, ok := SentimentLevel(tt.in)
		if level != tt.level || ok != tt.ok {
			t.Errorf("SentimentLevel(%q) = (%d, %v), want (%d, %v)", tt.in, level, ok, tt.level, tt.ok)
		}
	}
}

func TestBuildAnalysisView(t *testing.T) {
	view := BuildAnalysisView(models.ParsedAnalysis{
		Mood:           "joy",
		Suggestion:     "Rest",
		Keywords:       "a, b, c",
		SentimentScore: "3",
	})

	if view.MoodEmoji != "😄" {
		t.Errorf("MoodEmoji = %s", view.MoodEmoji)
	}
	if !reflect.DeepEqual(view.Keywords, []string{"a", "b", "c"}) {
		t.Errorf("Keywords = %#v", view.Keywords)
	}
	if len(view.SentimentBar) != SentimentCells {
		t.Fatalf("SentimentBar 长度 = %d, want %d", len(view.SentimentBar), SentimentCells)
	}
	for i, lit := range view.SentimentBar {
		if want := i < 3; lit != want {
			t.Errorf("cell %d lit = %v, want %v", i+1, lit, want)
		}
	}
}

func TestBuildAnalysisViewWithoutScore(t *testing.T) {
	view := BuildAnalysisView(models.ParsedAnalysis{Mood: "fear"})
	if view.SentimentBar != nil {
		t.Errorf("没有分数时不应该渲染分数条: %v", view.SentimentBar)
	}
	if view.Keywords != nil {
		t.Errorf("没有关键词时不应该渲染标签: %v", view.Keywords)
	}

	view = BuildAnalysisView(models.ParsedAnalysis{Mood: "fear", SentimentScore: "n/a"})
	for i, lit := range view.SentimentBar {
		if lit {
			t.Errorf("无法解析的分数不应该点亮格子 %d", i+1)
		}
	}
}
