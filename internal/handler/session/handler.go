package session

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/remedy-radar/backend/internal/auth"
	"github.com/zhouzirui/remedy-radar/backend/internal/middleware"
	"github.com/zhouzirui/remedy-radar/backend/internal/notify"
	sessionService "github.com/zhouzirui/remedy-radar/backend/internal/service/session"
	"github.com/zhouzirui/remedy-radar/backend/pkg/utils"
)

// Handler 会话、登录与通知的HTTP处理器
type Handler struct {
	registry *sessionService.Registry
}

// New 创建会话处理器
func New(registry *sessionService.Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes 注册无需会话上下文的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
}

// RegisterSessionRoutes 注册挂在 /sessions/{sessionID} 下的路由
func (h *Handler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/", h.handleGetSession)
	r.Delete("/", h.handleDeleteSession)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/notices", h.handleListNotices)
	r.Post("/notices/{noticeID}/dismiss", h.handleDismissNotice)
}

type sessionResponse struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	User      *auth.User `json:"user"`
}

func describe(s *sessionService.Session) sessionResponse {
	info := s.Info()
	resp := sessionResponse{ID: info.ID, CreatedAt: info.CreatedAt}
	if user, ok := s.Auth.CurrentUser(); ok {
		resp.User = &user
	}
	return resp
}

// handleCreateSession 创建会话；请求体携带 sessionId 时恢复已有会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := utils.DecodeJSON(r, &payload, true); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	if payload.SessionID != "" {
		s, err := h.registry.Restore(r.Context(), payload.SessionID)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, describe(s))
		return
	}

	s, err := h.registry.Create(r.Context())
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, describe(s))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, describe(s))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	if err := h.registry.Delete(s.ID); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLogin 登录当前会话
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())

	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := utils.DecodeJSON(r, &payload, false); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	user, err := s.Auth.Login(auth.User{Name: payload.Name, Email: payload.Email})
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	s.Auth.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListNotices(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{"notices": s.Notices.Entries()})
}

// handleDismissNotice 关闭订单弹窗，reason 为 close、backdrop 或 escape
func (h *Handler) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := utils.DecodeJSON(r, &payload, true); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	reason, ok := notify.ParseReason(payload.Reason)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "reason must be close, backdrop or escape")
		return
	}

	if !s.Notices.Dismiss(chi.URLParam(r, "noticeID"), reason) {
		utils.RespondError(w, http.StatusNotFound, "notice not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
