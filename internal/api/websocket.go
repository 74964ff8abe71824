// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Corphon/PixelDiary/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 10
	sendBufferSize = 32
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketClient 表示一个 WebSocket 客户端连接
type WebSocketClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closed    int32 // 原子操作标志，0=开启，1=关闭
	closeOnce sync.Once
	lastPing  int64 // unix 纳秒
	createdAt time.Time
}

func newWebSocketClient(conn *websocket.Conn) *WebSocketClient {
	now := time.Now()
	return &WebSocketClient{
		id:        uuid.NewString(),
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		lastPing:  now.UnixNano(),
		createdAt: now,
	}
}

// Close 安全关闭客户端连接，可重复调用
func (client *WebSocketClient) Close() {
	client.closeOnce.Do(func() {
		atomic.StoreInt32(&client.closed, 1)
		close(client.done)
		client.conn.Close()
	})
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 更新最后活跃时间
func (client *WebSocketClient) UpdatePing() {
	atomic.StoreInt64(&client.lastPing, time.Now().UnixNano())
}

// LastPing 最后活跃时间
func (client *WebSocketClient) LastPing() time.Time {
	return time.Unix(0, atomic.LoadInt64(&client.lastPing))
}

// SendMessage 序列化消息并放入发送队列，队列满时丢弃
func (client *WebSocketClient) SendMessage(message interface{}) bool {
	if client.IsClosed() {
		return false
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return false
	}

	select {
	case client.send <- msgBytes:
		return true
	case <-client.done:
		return false
	default:
		return false
	}
}

// SendError 发送错误消息到客户端
func (client *WebSocketClient) SendError(code, message string) bool {
	return client.SendMessage(wsErrorMessage{Type: "error", Code: code, Message: message})
}

// writePump 唯一的写协程，负责消息和心跳
func (client *WebSocketClient) writePump(log *logrus.Entry) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithError(err).Debug("websocket write failed")
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).Debug("websocket ping failed")
				return
			}

		case <-client.done:
			return
		}
	}
}

// WebSocketManager 管理所有 WebSocket 连接
type WebSocketManager struct {
	clients map[string]*WebSocketClient
	mutex   sync.RWMutex
	metrics *utils.MetricsCollector
	log     *logrus.Entry
}

// NewWebSocketManager 创建连接管理器
func NewWebSocketManager(metrics *utils.MetricsCollector, logger *logrus.Logger) *WebSocketManager {
	if metrics == nil {
		metrics = utils.GetMetricsCollector()
	}
	return &WebSocketManager{
		clients: make(map[string]*WebSocketClient),
		metrics: metrics,
		log:     utils.ComponentLogger(logger, "websocket"),
	}
}

// Register 注册新客户端
func (manager *WebSocketManager) Register(client *WebSocketClient) {
	manager.mutex.Lock()
	manager.clients[client.id] = client
	count := len(manager.clients)
	manager.mutex.Unlock()

	manager.metrics.SetGauge(utils.MetricWebSocketConnections, int64(count))
	manager.log.WithField("client_id", client.id).Info("websocket client connected")
}

// Unregister 注销并关闭客户端
func (manager *WebSocketManager) Unregister(client *WebSocketClient) {
	manager.mutex.Lock()
	_, exists := manager.clients[client.id]
	delete(manager.clients, client.id)
	count := len(manager.clients)
	manager.mutex.Unlock()

	client.Close()
	if exists {
		manager.metrics.SetGauge(utils.MetricWebSocketConnections, int64(count))
		manager.log.WithField("client_id", client.id).Info("websocket client disconnected")
	}
}

// Count 当前连接数
func (manager *WebSocketManager) Count() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.clients)
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	clients := make([]map[string]interface{}, 0, len(manager.clients))
	for _, client := range manager.clients {
		clients = append(clients, map[string]interface{}{
			"client_id":    client.id,
			"connected_at": client.createdAt.Format(time.RFC3339),
			"last_ping":    client.LastPing().Format(time.RFC3339),
		})
	}

	return map[string]interface{}{
		"total_connections": len(manager.clients),
		"clients":           clients,
	}
}

// Shutdown 关闭所有连接
func (manager *WebSocketManager) Shutdown() {
	manager.mutex.Lock()
	clients := manager.clients
	manager.clients = make(map[string]*WebSocketClient)
	manager.mutex.Unlock()

	for _, client := range clients {
		client.Close()
	}
	manager.metrics.SetGauge(utils.MetricWebSocketConnections, 0)
	manager.log.WithField("closed", len(clients)).Info("websocket manager shut down")
}
