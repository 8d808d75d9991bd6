package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/remedy-radar/backend/internal/middleware"
	"github.com/zhouzirui/remedy-radar/backend/pkg/utils"
)

// Handler 问诊对话的HTTP处理器
type Handler struct{}

// New 创建聊天处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册聊天相关的路由，需挂在会话子路由下
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/messages", h.handleListMessages)
	r.Post("/chat/messages", h.handleSendMessage)
	r.Delete("/chat/messages", h.handleClearMessages)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": s.Chat.Messages()})
}

// handleSendMessage 保存用户消息，助手回复稍后异步追加
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload, false); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	message := s.Chat.SendMessage(payload.Text)
	utils.RespondJSON(w, http.StatusAccepted, message)
}

func (h *Handler) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	s.Chat.ClearMessages()
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": s.Chat.Messages()})
}
