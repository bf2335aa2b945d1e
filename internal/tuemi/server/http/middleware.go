package http

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tuemi-io/tuemi/internal/pkg/metrics"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/pkg/log"
)

type userKey struct{}

func userFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey{}).(*model.User)
	return u
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument attaches a request-scoped logger and records latency per route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		logger := s.logger.WithValues("requestID", uuid.NewString(), "method", r.Method, "route", route)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(log.WithContext(r.Context(), logger)))

		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(elapsed.Seconds())
		logger.Debug("Request served", "status", rec.status, "duration", elapsed)
	})
}

// sessionToken reads the session cookie, falling back to a bearer token for API clients.
func (s *Server) sessionToken(r *http.Request) string {
	if c, err := r.Cookie(s.sessions.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// roles admits signed-in users whose role is one of allowed. An empty list admits anyone signed in.
func (s *Server) roles(h http.HandlerFunc, allowed ...model.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.sessionToken(r)
		if token == "" {
			writeError(w, r, core.ErrUnauthorized)
			return
		}
		user, err := s.svc.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if len(allowed) > 0 && !slices.Contains(allowed, user.Role) {
			writeError(w, r, core.ErrForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = log.WithContext(ctx, log.FromContext(ctx).WithValues("userID", user.ID))
		h(w, r.WithContext(ctx))
	})
}

func (s *Server) signedIn(h http.HandlerFunc) http.Handler {
	return s.roles(h)
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return s.roles(h, model.RoleAdmin)
}
