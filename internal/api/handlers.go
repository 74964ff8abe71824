// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Corphon/PixelDiary/internal/errors"
	"github.com/Corphon/PixelDiary/internal/models"
	"github.com/Corphon/PixelDiary/internal/services"
	"github.com/Corphon/PixelDiary/internal/utils"
)

// 页面上的等级条，目前是固定展示
const (
	playerLevel = 3
	playerXP    = 65
	playerMaxXP = 100
)

// Handler 处理API请求
type Handler struct {
	analyzer *services.AnalyzerService // 分析代理
	client   services.AnalysisClient   // 页面提交日记时使用的客户端
	metrics  *utils.MetricsCollector
	ws       *WebSocketManager
	response *ResponseHelper
	logger   *logrus.Logger
	log      *logrus.Entry
}

// NewHandler 创建API处理器
func NewHandler(analyzer *services.AnalyzerService, client services.AnalysisClient, metrics *utils.MetricsCollector, logger *logrus.Logger) *Handler {
	if metrics == nil {
		metrics = utils.GetMetricsCollector()
	}
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Handler{
		analyzer: analyzer,
		client:   client,
		metrics:  metrics,
		ws:       NewWebSocketManager(metrics, logger),
		response: NewResponseHelper(),
		logger:   logger,
		log:      utils.ComponentLogger(logger, "api"),
	}
}

// WebSockets 返回连接管理器，用于关闭服务时断开连接
func (h *Handler) WebSockets() *WebSocketManager {
	return h.ws
}

// ===============================
// 分析代理
// ===============================

// AnalyzeDiary 把日记转发给外部分析服务，成功时原样返回其 JSON
func (h *Handler) AnalyzeDiary(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeAnalysisError(c, h.analyzer.RejectInvalid(ctx, err))
		return
	}

	outcome, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		h.writeAnalysisError(c, err)
		return
	}

	h.response.RawJSON(c, outcome.Raw)
}

// writeAnalysisError 按错误类型选择状态码，错误代码取自 AppError
func (h *Handler) writeAnalysisError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidationError(err):
		h.response.BadRequest(c, apperrors.CodeOf(err), services.MessageInvalidRequest)
	case apperrors.IsUpstreamError(err):
		h.response.InternalError(c, apperrors.CodeOf(err), services.MessageAnalysisFailed)
	default:
		h.response.InternalError(c, ErrorInternalError, services.MessageAnalysisFailed)
	}
}

// ===============================
// 页面
// ===============================

// pageData 页面模板数据
type pageData struct {
	Snapshot services.SessionSnapshot
	Level    int
	XP       int
	MaxXP    int
	Notice   string
}

func newPageData(snapshot services.SessionSnapshot) pageData {
	return pageData{
		Snapshot: snapshot,
		Level:    playerLevel,
		XP:       playerXP,
		MaxXP:    playerMaxXP,
	}
}

// IndexPage 返回空白日记页面
func (h *Handler) IndexPage(c *gin.Context) {
	session := services.NewDiarySession(h.client, h.metrics, h.logger)
	c.HTML(http.StatusOK, "index.html", newPageData(session.Snapshot()))
}

// SubmitDiary 处理表单提交，分析失败时页面展示兜底数据
func (h *Handler) SubmitDiary(c *gin.Context) {
	session := services.NewDiarySession(h.client, h.metrics, h.logger)
	session.SetText(c.PostForm("text"))

	snapshot, err := session.Submit(c.Request.Context())
	if errors.Is(err, services.ErrEmptyEntry) {
		data := newPageData(snapshot)
		data.Notice = "Write something before asking for analysis."
		c.HTML(http.StatusBadRequest, "index.html", data)
		return
	}

	c.HTML(http.StatusOK, "index.html", newPageData(snapshot))
}

// ===============================
// 运维
// ===============================

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	h.response.Success(c, gin.H{"status": "ok"})
}

// Metrics 返回当前指标
func (h *Handler) Metrics(c *gin.Context) {
	h.response.Success(c, h.metrics.Snapshot())
}
