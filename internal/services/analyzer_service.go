// internal/services/analyzer_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Corphon/PixelDiary/internal/errors"
	"github.com/Corphon/PixelDiary/internal/llm"
	"github.com/Corphon/PixelDiary/internal/models"
	"github.com/Corphon/PixelDiary/internal/utils"
)

// 对外的错误提示，细节只写日志
const (
	MessageInvalidRequest = "Invalid request: text is required"
	MessageAnalysisFailed = "Failed to analyze diary entry"
)

// AnalysisOutcome 一次成功分析的结果
type AnalysisOutcome struct {
	Raw    []byte                // 外部服务返回的原始 JSON，原样转发
	Result models.AnalysisResult // 校验后的结构化结果
}

// AnalyzerService 把日记文本转发给外部分析服务
type AnalyzerService struct {
	provider llm.Provider
	metrics  *utils.MetricsCollector
	log      *logrus.Entry
}

// NewAnalyzerService 创建分析服务
func NewAnalyzerService(provider llm.Provider, metrics *utils.MetricsCollector, logger *logrus.Logger) *AnalyzerService {
	if metrics == nil {
		metrics = utils.GetMetricsCollector()
	}
	return &AnalyzerService{
		provider: provider,
		metrics:  metrics,
		log:      utils.ComponentLogger(logger, "analyzer"),
	}
}

// NewAnalyzerServiceWithProvider 按名称从注册表创建提供者
func NewAnalyzerServiceWithProvider(name string, providerConfig map[string]string, metrics *utils.MetricsCollector, logger *logrus.Logger) (*AnalyzerService, error) {
	provider, err := llm.GetProvider(name, providerConfig)
	if err != nil {
		return nil, err
	}
	return NewAnalyzerService(provider, metrics, logger), nil
}

// ProviderName 返回当前提供者名称
func (s *AnalyzerService) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.GetName()
}

// Analyze 校验请求并调用一次外部服务。
// 校验失败时不会发起任何外部请求。
func (s *AnalyzerService) Analyze(ctx context.Context, req models.AnalysisRequest) (*AnalysisOutcome, error) {
	s.metrics.IncrementCounter(utils.MetricAnalyzeRequests)
	log := s.log.WithField("request_id", utils.RequestIDFrom(ctx))

	if err := req.Validate(); err != nil {
		return nil, s.reject(log, err)
	}

	if s.provider == nil {
		return nil, s.fail(log, apperrors.NewUpstreamError(MessageAnalysisFailed, errors.New("analysis provider not configured")))
	}

	start := time.Now()
	resp, err := s.provider.RequestAdvice(ctx, llm.AdviceRequest{Text: req.Text})
	s.metrics.RecordHistogram(utils.MetricUpstreamLatencyMs, time.Since(start).Milliseconds())
	if err != nil {
		return nil, s.fail(log, apperrors.NewUpstreamError(MessageAnalysisFailed, err))
	}

	result, err := models.DecodeAnalysisResult(resp.Body)
	if err != nil {
		return nil, s.fail(log, apperrors.NewMalformedUpstreamError(MessageAnalysisFailed, err))
	}

	s.metrics.IncrementCounter(utils.MetricAnalyzeSuccess)
	log.WithFields(logrus.Fields{
		"emotion":  result.Emotion,
		"duration": time.Since(start).Milliseconds(),
	}).Info("diary entry analyzed")

	return &AnalysisOutcome{Raw: resp.Body, Result: *result}, nil
}

// RejectInvalid 记录一次无法解析的请求，不会发起外部请求
func (s *AnalyzerService) RejectInvalid(ctx context.Context, cause error) error {
	s.metrics.IncrementCounter(utils.MetricAnalyzeRequests)
	return s.reject(s.log.WithField("request_id", utils.RequestIDFrom(ctx)), cause)
}

func (s *AnalyzerService) reject(log *logrus.Entry, cause error) error {
	s.metrics.IncrementCounter(utils.MetricAnalyzeValidationError)
	log.WithError(cause).Debug("rejected analysis request")
	return apperrors.NewValidationError(MessageInvalidRequest, cause)
}

func (s *AnalyzerService) fail(log *logrus.Entry, err *apperrors.AppError) error {
	s.metrics.IncrementCounter(utils.MetricAnalyzeUpstreamFailure)
	fields := logrus.Fields{"provider": s.ProviderName(), "error_type": err.Type}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		fields["status"] = statusErr.StatusCode
		fields["body"] = statusErr.Body
	}
	log.WithFields(fields).WithError(err.Err).Error("error in analyze API")
	return err
}

// LocalAnalysisClient 在进程内调用分析服务。
// 服务端的页面和 WebSocket 会话使用它，不经过 /api/analyze 的限流。
type LocalAnalysisClient struct {
	analyzer *AnalyzerService
}

// NewLocalAnalysisClient 创建进程内客户端
func NewLocalAnalysisClient(analyzer *AnalyzerService) *LocalAnalysisClient {
	return &LocalAnalysisClient{analyzer: analyzer}
}

// Analyze 与 /api/analyze 相同的校验和外部调用
func (c *LocalAnalysisClient) Analyze(ctx context.Context, text string) (*models.AnalysisResult, error) {
	outcome, err := c.analyzer.Analyze(ctx, models.AnalysisRequest{Text: text})
	if err != nil {
		return nil, err
	}
	result := outcome.Result
	return &result, nil
}
