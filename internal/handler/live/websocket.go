package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/handler/stream"
	"github.com/zhouzirui/remedy-radar/backend/internal/middleware"
	"github.com/zhouzirui/remedy-radar/backend/internal/notify"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
	"github.com/zhouzirui/remedy-radar/backend/internal/service/session"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// 客户端消息类型
const (
	TypeChat      = "chat"
	TypeDismiss   = "dismiss"
	TypeClearChat = "clear_chat"
)

// WebSocketHandler 在一条连接上推送会话快照并接收聊天与弹窗操作
type WebSocketHandler struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		logger: observability.OrNop(logger).Named("websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由，需挂在会话子路由下
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws        *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *conn) send(kind string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(outgoingMessage{
		Type:      kind,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	logger := h.logger.With(zap.String("session", s.ID))
	logger.Info("new connection")

	detach := s.Attach()
	defer detach()

	c := &conn{ws: ws, sessionID: s.ID}
	feed := stream.NewFeed(s)
	defer feed.Close()

	ctx, cancel := context.WithCancel(r.Context())
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		h.writeLoop(ctx, c, s, feed, logger)
		// A failed write ends the connection.
		ws.Close()
	}()
	defer func() {
		cancel()
		<-writeDone
	}()

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("read error", zap.Error(err))
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		s.Touch()

		h.handleMessage(c, s, &msg)
	}
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, c *conn, s *session.Session, feed *stream.Feed, logger *zap.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-feed.Ready():
			for _, ev := range feed.Drain() {
				if err := c.send(ev.Name, ev.Data); err != nil {
					logger.Debug("write failed", zap.Error(err))
					return
				}
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
			s.Touch()
		}
	}
}

func (h *WebSocketHandler) handleMessage(c *conn, s *session.Session, msg *inboundMessage) {
	switch msg.Type {
	case TypeChat:
		sent := s.Chat.SendMessage(msg.Text)
		h.reply(c, "ack", sent)
	case TypeClearChat:
		s.Chat.ClearMessages()
	case TypeDismiss:
		reason, ok := notify.ParseReason(msg.Reason)
		if !ok {
			h.sendError(c, "reason must be close, backdrop or escape")
			return
		}
		if !s.Notices.Dismiss(msg.ID, reason) {
			h.sendError(c, "notice not found")
		}
	default:
		h.sendError(c, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) reply(c *conn, kind string, data interface{}) {
	if err := c.send(kind, data); err != nil {
		h.logger.Debug("write reply failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *conn, message string) {
	h.reply(c, "error", map[string]string{"message": message})
}
