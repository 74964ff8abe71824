// internal/services/proxy_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Corphon/PixelDiary/internal/errors"
	"github.com/Corphon/PixelDiary/internal/models"
	"github.com/Corphon/PixelDiary/internal/utils"
)

// HTTPAnalysisClient 通过本服务的 /api/analyze 接口请求分析
type HTTPAnalysisClient struct {
	url        string
	httpClient *http.Client
}

// NewHTTPAnalysisClient 创建代理客户端，httpClient 为 nil 时使用默认客户端
func NewHTTPAnalysisClient(url string, httpClient *http.Client) *HTTPAnalysisClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPAnalysisClient{url: url, httpClient: httpClient}
}

// URL 返回代理地址
func (c *HTTPAnalysisClient) URL() string {
	return c.url
}

// Analyze 提交日记文本，非 2xx 响应或无法解析的响应都视为失败。
// 返回的错误均为外部服务类错误。
func (c *HTTPAnalysisClient) Analyze(ctx context.Context, text string) (*models.AnalysisResult, error) {
	payload, err := json.Marshal(models.AnalysisRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := utils.RequestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("analysis proxy request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewUpstreamError("read analysis response failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("analysis proxy returned %d", resp.StatusCode),
			fmt.Errorf("%s", string(body)),
		)
	}

	result, err := models.DecodeAnalysisResult(body)
	if err != nil {
		return nil, apperrors.WrapError(err, "invalid analysis response", apperrors.ErrorTypeMalformedUpstream)
	}
	return result, nil
}
