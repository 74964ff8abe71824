// internal/llm/providers/hfspace/hfspace.go
package hfspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Corphon/PixelDiary/internal/llm"
)

// ProviderName 注册名
const ProviderName = "hfspace"

// DefaultEndpoint 托管的日记分析服务地址
const DefaultEndpoint = "https://nitinat-right-here.hf.space/getadvice"

// maxResponseBytes 读取响应体的上限
const maxResponseBytes = 1 << 20

func init() {
	llm.Register(ProviderName, func() llm.Provider {
		return &Provider{endpoint: DefaultEndpoint}
	})
}

// Provider 通过 HTTP 调用托管在 Hugging Face Space 上的分析服务
type Provider struct {
	endpoint string
	client   *http.Client
}

// Initialize 读取 endpoint 配置。
// 不设置客户端超时，请求生命周期由调用方的 context 控制。
func (p *Provider) Initialize(config map[string]string) error {
	if endpoint, exists := config["endpoint"]; exists && endpoint != "" {
		p.endpoint = endpoint
	}

	u, err := url.Parse(p.endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("无效的分析服务地址: %q", p.endpoint)
	}

	p.client = &http.Client{}
	return nil
}

func (p *Provider) GetName() string {
	return "HuggingFace Space"
}

// Endpoint 返回当前使用的服务地址
func (p *Provider) Endpoint() string {
	return p.endpoint
}

func (p *Provider) RequestAdvice(ctx context.Context, req llm.AdviceRequest) (*llm.AdviceResponse, error) {
	if p.client == nil {
		return nil, errors.New("hfspace provider 未初始化")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &llm.StatusError{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return &llm.AdviceResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
