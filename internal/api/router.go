// internal/api/router.go
package api

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Corphon/PixelDiary/internal/config"
	"github.com/Corphon/PixelDiary/web"
)

// SetupRouter 配置HTTP路由
func SetupRouter(cfg *config.Config, handler *Handler, limiter *RateLimiter, logger *logrus.Logger) (*gin.Engine, error) {
	if limiter == nil {
		limiter = NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	}

	r := gin.New()
	// 只信任配置中的代理，否则客户端可以伪造 X-Forwarded-For 绕过限流
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("设置可信代理失败: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(AccessLogMiddleware(logger))

	// 启用CORS
	r.Use(corsMiddleware())

	// HTML模板
	tmpl, err := template.ParseFS(web.FS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("加载页面模板失败: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	// 静态文件服务
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("加载静态文件失败: %w", err)
	}
	r.StaticFS("/static", http.FS(static))

	// ===============================
	// 页面路由
	// ===============================
	r.GET("/", handler.IndexPage)
	r.POST("/diary", limiter.Middleware(), handler.SubmitDiary)

	// WebSocket 支持
	r.GET("/ws/diary", handler.DiaryWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		api.POST("/analyze", limiter.Middleware(), handler.AnalyzeDiary)
		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.Metrics)
		api.GET("/ws/status", handler.GetWebSocketStatus)
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
