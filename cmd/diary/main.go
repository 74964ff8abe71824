// cmd/diary/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Corphon/PixelDiary/internal/config"
	"github.com/Corphon/PixelDiary/internal/services"
	"github.com/Corphon/PixelDiary/internal/utils"
)

// 控制台日记：读取标准输入，请求正在运行的服务进行分析
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 加载配置失败: %v\n", err)
		os.Exit(1)
	}

	proxyURL := flag.String("url", cfg.ProxyURL, "analysis endpoint")
	flag.Parse()

	// 控制台只显示警告以上的日志
	if err := utils.InitLogger("warn", ""); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️ 日志初始化失败: %v\n", err)
	}

	fmt.Println("📓 WRITE IN DIARY (finish with Ctrl-D)")
	text, err := readEntry(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 读取输入失败: %v\n", err)
		os.Exit(1)
	}

	client := services.NewHTTPAnalysisClient(*proxyURL, nil)
	fmt.Printf("🔗 %s\n", client.URL())
	session := services.NewDiarySession(client, nil, utils.GetLogger())
	session.SetText(text)

	fmt.Println(session.Snapshot().ButtonLabel())
	snapshot, err := session.Submit(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	printAnalysis(os.Stdout, snapshot)
}

// readEntry 读取全部输入，去掉末尾的换行
func readEntry(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// printAnalysis 以文本形式输出分析结果，空字段不显示
func printAnalysis(w io.Writer, snapshot services.SessionSnapshot) {
	view := snapshot.View
	if view == nil {
		return
	}

	fmt.Fprintln(w, "★ ANALYSIS RESULTS ★")
	fmt.Fprintf(w, "MOOD: %s %s\n", view.MoodEmoji, view.Mood)
	if view.Suggestion != "" {
		fmt.Fprintf(w, "SUGGESTION: %s\n", view.Suggestion)
	}
	if view.EmotionalReflection != "" {
		fmt.Fprintf(w, "EMOTIONAL REFLECTION: %s\n", view.EmotionalReflection)
	}
	if len(view.Keywords) > 0 {
		fmt.Fprintf(w, "KEYWORDS: [%s]\n", strings.Join(view.Keywords, "] ["))
	}
	if view.SentimentScore != "" {
		var bar strings.Builder
		for _, on := range view.SentimentBar {
			if on {
				bar.WriteString("■")
			} else {
				bar.WriteString("□")
			}
		}
		fmt.Fprintf(w, "SENTIMENT SCORE: %s %s / 10\n", bar.String(), view.SentimentScore)
	}
}
