package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/remedy-radar/backend/internal/service/session"
	"github.com/zhouzirui/remedy-radar/backend/pkg/utils"
)

type sessionKey struct{}

// SessionContext 根据路由参数 sessionID 查找会话并放入请求上下文，找不到时返回 404。
func SessionContext(reg *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := reg.Get(chi.URLParam(r, "sessionID"))
			if err != nil {
				utils.RespondAppError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session installed by SessionContext.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*session.Session)
	return s, ok && s != nil
}
