package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/observability"
)

type ctxKey uint8

const currentUserKey ctxKey = iota

func currentUser(ctx context.Context) domain.CurrentUser {
	cur, _ := ctx.Value(currentUserKey).(domain.CurrentUser)
	return cur
}

// authenticate resolves the bearer token into a CurrentUser. Requests
// without a valid access token never reach the order handlers.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "missing bearer token"})
			return
		}

		cur, err := s.auth.CurrentUser(r.Context(), raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "invalid or expired token"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), currentUserKey, cur)))
	})
}

// observe records per-request HTTP metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveHTTP(r.Method, route, sw.status, observability.SinceMs(start))
		if sw.status >= http.StatusInternalServerError {
			s.logger.Error("request failed",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", sw.status),
			)
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type errorBody struct {
	Message string `json:"message"`
}

// writeError maps domain error kinds onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "server error"

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		status, msg = http.StatusNotFound, err.Error()
	case domain.KindNotAllowed:
		status, msg = http.StatusForbidden, err.Error()
	case domain.KindInvalidData:
		status, msg = http.StatusBadRequest, err.Error()
	case domain.KindConflict:
		status, msg = http.StatusConflict, err.Error()
	case domain.KindRemoteUnavailable:
		status = http.StatusServiceUnavailable
		msg = "temporarily unavailable"
		s.logger.Error("remote dependency failed", zap.Error(err))
	default:
		s.logger.Error("unhandled error", zap.Error(err))
	}

	writeJSON(w, status, errorBody{Message: msg})
}
