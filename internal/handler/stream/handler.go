package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/middleware"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
	"github.com/zhouzirui/remedy-radar/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler 通过 Server-Sent Events 推送购物车、对话与通知的快照
type Handler struct {
	logger    *zap.Logger
	heartbeat time.Duration
}

// New creates a new stream handler
func New(logger *zap.Logger) *Handler {
	return &Handler{
		logger:    observability.OrNop(logger).Named("sse"),
		heartbeat: defaultHeartbeat,
	}
}

// RegisterRoutes 注册事件流路由，需挂在会话子路由下
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	detach := s.Attach()
	defer detach()

	feed := NewFeed(s)
	defer feed.Close()

	ctx := r.Context()
	logger := h.logger.With(zap.String("session", s.ID))
	logger.Debug("opening event stream")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("closing event stream")
			return
		case <-feed.Ready():
			for _, ev := range feed.Drain() {
				if err := utils.SendSSEEvent(w, flusher, ev.Name, ev.Data); err != nil {
					logger.Debug("event stream write failed", zap.Error(err))
					return
				}
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
			s.Touch()
		}
	}
}
