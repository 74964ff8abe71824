// cmd/server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Corphon/PixelDiary/internal/app"
	"github.com/Corphon/PixelDiary/internal/config"
	"github.com/Corphon/PixelDiary/internal/utils"
)

func main() {
	logger := utils.GetLogger()
	logger.Info("🚀 启动 PixelDiary 服务器...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	if err := utils.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		logger.Warnf("⚠️ 无法写入日志文件，仅输出到控制台: %v", err)
	}
	defer utils.CloseLogger()
	logger.Infof("✅ 配置加载完成，端口: %s，分析服务: %s", cfg.Port, cfg.AdviceURL)

	// 3. 组装服务
	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("❌ 初始化服务失败: %v", err)
	}

	// 4. 运行到收到中断信号
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("🔗 访问地址: http://localhost:%s", cfg.Port)
	if err := application.Run(ctx); err != nil {
		logger.Errorf("❌ %v", err)
		utils.CloseLogger()
		os.Exit(1)
	}
	logger.Info("✅ 服务器优雅关闭完成")
}
