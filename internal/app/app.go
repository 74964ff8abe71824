// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Corphon/PixelDiary/internal/api"
	"github.com/Corphon/PixelDiary/internal/config"
	"github.com/Corphon/PixelDiary/internal/llm"
	"github.com/Corphon/PixelDiary/internal/services"
	"github.com/Corphon/PixelDiary/internal/utils"

	// 注册分析服务提供者
	_ "github.com/Corphon/PixelDiary/internal/llm/providers/hfspace"
)

const (
	shutdownTimeout     = 30 * time.Second
	metricsInterval     = 5 * time.Minute
	limiterCleanupEvery = 10 * time.Minute
)

// App 组装并运行整个服务
type App struct {
	config   *config.Config
	logger   *logrus.Logger
	metrics  *utils.MetricsCollector
	analyzer *services.AnalyzerService
	handler  *api.Handler
	limiter  *api.RateLimiter
	router   *gin.Engine

	mutex    sync.Mutex
	listener net.Listener
}

// New 按配置创建所有服务和路由
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := utils.GetMetricsCollector()

	analyzer, err := services.NewAnalyzerServiceWithProvider(cfg.LLMProvider, cfg.ProviderConfig(), metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化分析服务失败 (可用: %v): %w", llm.ListProviders(), err)
	}

	// 页面会话在进程内调用分析服务，不占用 /api/analyze 的限流额度
	client := services.NewLocalAnalysisClient(analyzer)
	handler := api.NewHandler(analyzer, client, metrics, logger)
	limiter := api.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	router, err := api.SetupRouter(cfg, handler, limiter, logger)
	if err != nil {
		return nil, fmt.Errorf("设置路由失败: %w", err)
	}

	return &App{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		analyzer: analyzer,
		handler:  handler,
		limiter:  limiter,
		router:   router,
	}, nil
}

// Router 返回 HTTP 路由
func (a *App) Router() http.Handler {
	return a.router
}

// Config 返回当前配置
func (a *App) Config() *config.Config {
	return a.config
}

// IsDebugMode 是否为调试模式
func (a *App) IsDebugMode() bool {
	return a.config.DebugMode
}

// Addr 返回实际监听地址，未启动时为空
func (a *App) Addr() string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Run 启动服务并阻塞到 ctx 结束，然后优雅关闭
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.Addr())
	if err != nil {
		return fmt.Errorf("监听端口失败: %w", err)
	}
	a.mutex.Lock()
	a.listener = ln
	a.mutex.Unlock()

	srv := &http.Server{Handler: a.router}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	a.metrics.StartMetricsReport(bgCtx, a.logger, metricsInterval)
	go a.limiter.Run(bgCtx, limiterCleanupEvery)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	a.logger.WithFields(logrus.Fields{
		"addr":     ln.Addr().String(),
		"provider": a.analyzer.ProviderName(),
		"advice":   a.config.AdviceURL,
	}).Info("server started")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务器异常退出: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 已升级的 WebSocket 连接不受 Shutdown 管理，需要单独关闭
	a.handler.WebSockets().Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}
