package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Corphon/PixelDiary/internal/config"
	apperrors "github.com/Corphon/PixelDiary/internal/errors"
	_ "github.com/Corphon/PixelDiary/internal/llm/providers/hfspace"
	"github.com/Corphon/PixelDiary/internal/models"
	"github.com/Corphon/PixelDiary/internal/services"
	"github.com/Corphon/PixelDiary/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAnalysisClient 页面使用的分析客户端
type stubAnalysisClient struct {
	result *models.AnalysisResult
	err    error
}

func (s *stubAnalysisClient) Analyze(ctx context.Context, text string) (*models.AnalysisResult, error) {
	return s.result, s.err
}

type testEnv struct {
	router   *gin.Engine
	handler  *Handler
	metrics  *utils.MetricsCollector
	upstream *httptest.Server
	calls    *int32
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestEnv 启动模拟的外部分析服务并构建路由
func newTestEnv(t *testing.T, upstream http.HandlerFunc, client services.AnalysisClient, limiter *RateLimiter) *testEnv {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := quietLogger()
	metrics := utils.NewMetricsCollector()
	analyzer, err := services.NewAnalyzerServiceWithProvider("hfspace", map[string]string{"endpoint": srv.URL}, metrics, logger)
	if err != nil {
		t.Fatalf("NewAnalyzerServiceWithProvider failed: %v", err)
	}

	cfg := config.Default()
	cfg.ProxyURL = "http://127.0.0.1:8080/api/analyze"
	if limiter == nil {
		limiter = NewRateLimiter(6000, 1000)
	}

	handler := NewHandler(analyzer, client, metrics, logger)
	router, err := SetupRouter(cfg, handler, limiter, logger)
	if err != nil {
		t.Fatalf("SetupRouter failed: %v", err)
	}

	return &testEnv{router: router, handler: handler, metrics: metrics, upstream: srv, calls: &calls}
}

func replyWith(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func (e *testEnv) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestAnalyzeRejectsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing text", `{}`},
		{"empty text", `{"text":""}`},
		{"null text", `{"text":null}`},
		{"numeric text", `{"text":42}`},
		{"malformed json", `{"text":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, replyWith(http.StatusOK, `{"emotion":"joy","advice":""}`), nil, nil)

			w := env.do(http.MethodPost, "/api/analyze", "application/json", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := decodeError(t, w)
			if resp.Error != "Invalid request: text is required" || resp.Code != apperrors.CodeInvalidRequest {
				t.Errorf("body = %+v", resp)
			}
			if resp.RequestID == "" {
				t.Error("request_id should be set")
			}
			if n := atomic.LoadInt32(env.calls); n != 0 {
				t.Errorf("外部服务不应被调用, calls = %d", n)
			}
		})
	}
}

func TestAnalyzeRelaysUpstreamBody(t *testing.T) {
	const body = `{"emotion":"joy","advice":"- Suggestion: Call a friend\n- Sentiment Score: 8","model":"v2"}`
	var received string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		received = string(raw)
		replyWith(http.StatusOK, body)(w, r)
	}, nil, nil)

	w := env.do(http.MethodPost, "/api/analyze", "application/json", `{"text":"   "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != body {
		t.Errorf("body = %s, want %s", w.Body.String(), body)
	}
	if received != `{"text":"   "}` {
		t.Errorf("upstream received %s", received)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Content-Type = %s", w.Header().Get("Content-Type"))
	}
	if env.metrics.GetCounterValue(utils.MetricAnalyzeSuccess) != 1 {
		t.Error("success counter should be 1")
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	tests := []struct {
		name     string
		upstream http.HandlerFunc
	}{
		{"service unavailable", replyWith(http.StatusServiceUnavailable, `{"error":"loading"}`)},
		{"not found", replyWith(http.StatusNotFound, `not here`)},
		{"missing advice", replyWith(http.StatusOK, `{"emotion":"joy"}`)},
		{"html body", replyWith(http.StatusOK, `<html></html>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.upstream, nil, nil)

			w := env.do(http.MethodPost, "/api/analyze", "application/json", `{"text":"hello"}`)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", w.Code)
			}
			resp := decodeError(t, w)
			if resp.Error != "Failed to analyze diary entry" || resp.Code != apperrors.CodeAnalysisFailed {
				t.Errorf("body = %+v", resp)
			}
			if n := atomic.LoadInt32(env.calls); n != 1 {
				t.Errorf("calls = %d, want exactly 1", n)
			}
		})
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, replyWith(http.StatusOK, `{}`), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}

	w = env.do(http.MethodGet, "/api/health", "", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("generated request id missing")
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	env := newTestEnv(t, replyWith(http.StatusOK, `{"emotion":"joy","advice":""}`), nil, NewRateLimiter(1, 1))

	if w := env.do(http.MethodPost, "/api/analyze", "application/json", `{"text":"one"}`); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	w := env.do(http.MethodPost, "/api/analyze", "application/json", `{"text":"two"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrorRateLimitExceeded {
		t.Errorf("code = %s", resp.Code)
	}
	if n := atomic.LoadInt32(env.calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

// 未配置可信代理时，伪造 X-Forwarded-For 不能换到新的令牌桶
func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	env := newTestEnv(t, replyWith(http.StatusOK, `{"emotion":"joy","advice":""}`), nil, NewRateLimiter(1, 1))

	post := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w.Code
	}

	if code := post("198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := post("198.51.100.2"); code != http.StatusTooManyRequests {
		t.Errorf("spoofed client status = %d, want 429", code)
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, replyWith(http.StatusOK, `{}`), &stubAnalysisClient{}, nil)

	w := env.do(http.MethodGet, "/", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	page := w.Body.String()
	for _, want := range []string{"WRITE IN DIARY", "LV 3", "65/100 XP", "ANALYZE WITH AI"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "MOOD") {
		t.Error("results panel should be empty before analysis")
	}
}

func TestSubmitDiaryPage(t *testing.T) {
	tests := []struct {
		name     string
		client   *stubAnalysisClient
		text     string
		status   int
		contains []string
		absent   []string
	}{
		{
			name: "analysis success",
			client: &stubAnalysisClient{result: &models.AnalysisResult{
				Emotion: "joy",
				Advice:  "- Suggestion: Go outside\n- Keywords: sun, park\n- Sentiment Score: 7",
			}},
			text:     "sunny day",
			status:   http.StatusOK,
			contains: []string{"😄", "Go outside", "sun", "park", "7 / 10"},
			absent:   []string{"EMOTIONAL REFLECTION"},
		},
		{
			name:     "analysis failure shows mock",
			client:   &stubAnalysisClient{err: errors.New("proxy down")},
			text:     "rough week",
			status:   http.StatusOK,
			contains: []string{"😢", "Take breaks between study sessions", "final exam", "3 / 10"},
		},
		{
			name:     "blank entry",
			client:   &stubAnalysisClient{},
			text:     "   ",
			status:   http.StatusBadRequest,
			contains: []string{"Write something before asking for analysis."},
			absent:   []string{"SENTIMENT SCORE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, replyWith(http.StatusOK, `{}`), tt.client, nil)

			form := url.Values{"text": {tt.text}}.Encode()
			w := env.do(http.MethodPost, "/diary", "application/x-www-form-urlencoded", form)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			page := w.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(page, want) {
					t.Errorf("page missing %q", want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(page, unwanted) {
					t.Errorf("page should not contain %q", unwanted)
				}
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, replyWith(http.StatusOK, `{"emotion":"joy","advice":""}`), nil, nil)
	env.do(http.MethodPost, "/api/analyze", "application/json", `{"text":"x"}`)

	w := env.do(http.MethodGet, "/api/health", "", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"status":"ok"}` {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/metrics", "", "")
	var snapshot utils.MetricsSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if snapshot.Counters[utils.MetricAnalyzeRequests] != 1 {
		t.Errorf("counters = %v", snapshot.Counters)
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, replyWith(http.StatusOK, `{}`), nil, nil)

	for _, path := range []string{"/static/css/style.css", "/static/js/diary.js"} {
		if w := env.do(http.MethodGet, path, "", ""); w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}
