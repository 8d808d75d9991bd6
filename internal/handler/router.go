package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/config"
	"github.com/zhouzirui/remedy-radar/backend/internal/handler/cart"
	"github.com/zhouzirui/remedy-radar/backend/internal/handler/chat"
	"github.com/zhouzirui/remedy-radar/backend/internal/handler/live"
	"github.com/zhouzirui/remedy-radar/backend/internal/handler/session"
	"github.com/zhouzirui/remedy-radar/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/remedy-radar/backend/internal/middleware"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
	sessionService "github.com/zhouzirui/remedy-radar/backend/internal/service/session"
	"github.com/zhouzirui/remedy-radar/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(registry *sessionService.Registry, cfg config.ServerConfig, logger *zap.Logger) http.Handler {
	logger = observability.OrNop(logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	sessionHandler := session.New(registry)
	cartHandler := cart.New()
	chatHandler := chat.New()
	streamHandler := stream.New(logger)
	liveHandler := live.NewWebSocketHandler(logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": registry.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)

		api.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Use(middlewarePkg.SessionContext(registry))

			sessionHandler.RegisterSessionRoutes(sr)
			cartHandler.RegisterRoutes(sr)
			chatHandler.RegisterRoutes(sr)
			streamHandler.RegisterRoutes(sr)
			liveHandler.RegisterRoutes(sr)
		})
	})

	return r
}
