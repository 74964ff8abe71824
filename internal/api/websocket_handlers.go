// internal/api/websocket_handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Corphon/PixelDiary/internal/errors"
	"github.com/Corphon/PixelDiary/internal/models"
	"github.com/Corphon/PixelDiary/internal/services"
	"github.com/Corphon/PixelDiary/internal/utils"
)

// wsInbound 客户端发来的消息
type wsInbound struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

// wsStateMessage 会话状态推送
type wsStateMessage struct {
	Type        string                 `json:"type"`
	State       services.SessionState  `json:"state"`
	Analysis    *models.ParsedAnalysis `json:"analysis,omitempty"`
	View        *services.AnalysisView `json:"view,omitempty"`
	Fallback    bool                   `json:"fallback"`
	ButtonLabel string                 `json:"buttonLabel"`
}

// wsErrorMessage 错误推送
type wsErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newStateMessage(s services.SessionSnapshot) wsStateMessage {
	return wsStateMessage{
		Type:        "state",
		State:       s.State,
		Analysis:    s.Analysis,
		View:        s.View,
		Fallback:    s.Fallback,
		ButtonLabel: s.ButtonLabel(),
	}
}

// DiaryWebSocket 每个连接拥有独立的日记会话
func (h *Handler) DiaryWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := newWebSocketClient(conn)
	h.ws.Register(client)
	defer h.ws.Unregister(client)

	log := h.log.WithFields(logrus.Fields{
		"client_id":  client.id,
		"request_id": c.GetString(requestIDKey),
	})

	// 连接断开时取消进行中的分析
	ctx, cancel := context.WithCancel(utils.WithRequestID(context.Background(), c.GetString(requestIDKey)))
	defer cancel()

	session := services.NewDiarySession(h.client, h.metrics, h.logger)
	updates := session.Subscribe()
	defer session.Unsubscribe(updates)

	go client.writePump(log)
	go func() {
		for snapshot := range updates {
			client.SendMessage(newStateMessage(snapshot))
		}
	}()

	client.SendMessage(newStateMessage(session.Snapshot()))
	h.readWebSocket(ctx, client, session, log)
}

// readWebSocket 读取消息直到连接关闭
func (h *Handler) readWebSocket(ctx context.Context, client *WebSocketClient, session *services.DiarySession, log *logrus.Entry) {
	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg wsInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			client.SendError(ErrorBadMessage, "message is not valid JSON")
			continue
		}

		switch msg.Type {
		case "analyze":
			h.handleAnalyzeMessage(ctx, client, session, msg)
		case "ping":
			client.SendMessage(map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().Unix(),
			})
		default:
			client.SendError(ErrorBadMessage, "unknown message type: "+msg.Type)
		}
	}
}

func (h *Handler) handleAnalyzeMessage(ctx context.Context, client *WebSocketClient, session *services.DiarySession, msg wsInbound) {
	if msg.Text == nil {
		client.SendError(ErrorBadMessage, "text is required")
		return
	}

	session.SetText(*msg.Text)
	err := session.SubmitAsync(ctx)
	switch {
	case err == nil:
	case apperrors.IsConflictError(err):
		client.SendError(ErrorSubmissionInFlight, "analysis already in progress")
	case errors.Is(err, services.ErrEmptyEntry):
		client.SendError(ErrorEmptyEntry, "diary entry is empty")
	default:
		client.SendError(ErrorInternalError, err.Error())
	}
}

// GetWebSocketStatus 返回当前连接状态
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.response.Success(c, h.ws.GetStatus())
}
