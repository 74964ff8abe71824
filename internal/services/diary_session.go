// internal/services/diary_session.go
package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Corphon/PixelDiary/internal/errors"
	"github.com/Corphon/PixelDiary/internal/models"
	"github.com/Corphon/PixelDiary/internal/utils"
)

// SessionState 日记页面的提交状态
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateSubmitting SessionState = "submitting"
	StateSuccess    SessionState = "success"
	StateFailed     SessionState = "failed" // 展示兜底数据
)

// 会话错误
var (
	ErrSubmissionInFlight = apperrors.NewConflictError("analysis already in progress", nil)
	ErrEmptyEntry         = apperrors.NewValidationError("diary entry is empty", nil)
)

// AnalysisClient 页面用来请求分析的客户端
type AnalysisClient interface {
	Analyze(ctx context.Context, text string) (*models.AnalysisResult, error)
}

// SessionSnapshot 会话在某一时刻的只读副本
type SessionSnapshot struct {
	State     SessionState           `json:"state"`
	Text      string                 `json:"text"`
	Analysis  *models.ParsedAnalysis `json:"analysis,omitempty"`
	View      *AnalysisView          `json:"view,omitempty"`
	Fallback  bool                   `json:"fallback"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Busy 是否有分析请求正在进行
func (s SessionSnapshot) Busy() bool {
	return s.State == StateSubmitting
}

// ButtonLabel 提交按钮的文字
func (s SessionSnapshot) ButtonLabel() string {
	if s.Busy() {
		return "ANALYZING..."
	}
	return "ANALYZE WITH AI"
}

// SessionEventType 状态机事件类型
type SessionEventType string

const (
	EventEdit      SessionEventType = "edit"
	EventSubmit    SessionEventType = "submit"
	EventSucceeded SessionEventType = "succeeded"
	EventFailed    SessionEventType = "failed"
)

// SessionEvent 状态机事件
type SessionEvent struct {
	Type     SessionEventType
	Text     string                // EventEdit
	Analysis models.ParsedAnalysis // EventSucceeded / EventFailed
}

// Reduce 根据事件计算新的会话状态，不修改入参。
// 编辑文本不会清除已有的分析结果；新结果总是整体替换旧结果。
func Reduce(s SessionSnapshot, ev SessionEvent) SessionSnapshot {
	switch ev.Type {
	case EventEdit:
		s.Text = ev.Text
	case EventSubmit:
		s.State = StateSubmitting
	case EventSucceeded, EventFailed:
		analysis := ev.Analysis
		s.Analysis = &analysis
		s.View = BuildAnalysisView(analysis)
		s.Fallback = ev.Type == EventFailed
		if s.Fallback {
			s.State = StateFailed
		} else {
			s.State = StateSuccess
		}
	default:
		return s
	}
	s.UpdatedAt = time.Now()
	return s
}

// DiarySession 单个用户的日记页面状态
type DiarySession struct {
	client      AnalysisClient
	metrics     *utils.MetricsCollector
	log         *logrus.Entry
	state       SessionSnapshot
	subscribers map[chan SessionSnapshot]bool
	mutex       sync.Mutex
}

// NewDiarySession 创建空白会话
func NewDiarySession(client AnalysisClient, metrics *utils.MetricsCollector, logger *logrus.Logger) *DiarySession {
	if metrics == nil {
		metrics = utils.GetMetricsCollector()
	}
	return &DiarySession{
		client:      client,
		metrics:     metrics,
		log:         utils.ComponentLogger(logger, "diary_session"),
		state:       SessionSnapshot{State: StateIdle, UpdatedAt: time.Now()},
		subscribers: make(map[chan SessionSnapshot]bool),
	}
}

// Subscribe 订阅状态变化，返回的通道在 Unsubscribe 时关闭
func (d *DiarySession) Subscribe() chan SessionSnapshot {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	ch := make(chan SessionSnapshot, 8)
	d.subscribers[ch] = true
	return ch
}

// Unsubscribe 取消订阅
func (d *DiarySession) Unsubscribe(ch chan SessionSnapshot) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, ok := d.subscribers[ch]; ok {
		delete(d.subscribers, ch)
		close(ch)
	}
}

// Snapshot 返回当前状态
func (d *DiarySession) Snapshot() SessionSnapshot {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.state
}

// SetText 更新草稿文本
func (d *DiarySession) SetText(text string) SessionSnapshot {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.applyLocked(SessionEvent{Type: EventEdit, Text: text})
}

// CanSubmit 文本非空且没有进行中的请求
func (d *DiarySession) CanSubmit() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return !d.state.Busy() && strings.TrimSpace(d.state.Text) != ""
}

// Submit 提交当前文本并等待结果。
// 分析失败不返回错误：会话进入 failed 状态并展示兜底数据。
// 只有重复提交和空文本会返回错误，此时不会发起请求。
func (d *DiarySession) Submit(ctx context.Context) (SessionSnapshot, error) {
	text, err := d.begin()
	if err != nil {
		return d.Snapshot(), err
	}
	return d.complete(ctx, text), nil
}

// SubmitAsync 与 Submit 相同，但在后台等待结果，通过订阅通道获取后续状态
func (d *DiarySession) SubmitAsync(ctx context.Context) error {
	text, err := d.begin()
	if err != nil {
		return err
	}
	go d.complete(ctx, text)
	return nil
}

// begin 检查能否提交并进入 submitting 状态
func (d *DiarySession) begin() (string, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.state.Busy() {
		return "", ErrSubmissionInFlight
	}
	text := d.state.Text
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyEntry
	}
	d.applyLocked(SessionEvent{Type: EventSubmit})
	d.metrics.IncrementCounter(utils.MetricDiarySubmissions)
	return text, nil
}

func (d *DiarySession) complete(ctx context.Context, text string) SessionSnapshot {
	var result *models.AnalysisResult
	var err error
	if d.client == nil {
		err = apperrors.NewUpstreamError(MessageAnalysisFailed, nil)
	} else {
		result, err = d.client.Analyze(ctx, text)
	}

	event := SessionEvent{Type: EventSucceeded}
	if err != nil {
		d.metrics.IncrementCounter(utils.MetricDiaryFallbacks)
		d.log.WithField("request_id", utils.RequestIDFrom(ctx)).WithError(err).Warn("analysis failed, showing mock data")
		event = SessionEvent{Type: EventFailed, Analysis: ParseAnalysisResult(models.MockAnalysisResult())}
	} else {
		event.Analysis = ParseAnalysisResult(*result)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.applyLocked(event)
}

// applyLocked 调用方必须持有锁
func (d *DiarySession) applyLocked(ev SessionEvent) SessionSnapshot {
	d.state = Reduce(d.state, ev)
	for subscriber := range d.subscribers {
		// 非阻塞发送，通道满时跳过
		select {
		case subscriber <- d.state:
		default:
		}
	}
	return d.state
}
