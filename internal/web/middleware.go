package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/AlouiLouai/takwira/internal/board"
	"github.com/AlouiLouai/takwira/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const sessionCookieName = "takwira_session"

type ctxKey int

const boardKey ctxKey = iota

// withSession attaches the caller's board, issuing a session cookie on first
// contact.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(sessionCookieName); err == nil && validSessionID(cookie.Value) {
			id = cookie.Value
		}
		if id == "" {
			id = s.uuid.NewUUID()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		b := s.sessions.Get(r.Context(), id)
		ctx := context.WithValue(r.Context(), boardKey, b)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func boardFrom(r *http.Request) *board.Board {
	b, _ := r.Context().Value(boardKey).(*board.Board)
	return b
}

func validSessionID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && len(id) <= 64
}

// instrument records request metrics and logs each request at debug level.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		elapsed := time.Since(start)
		s.rec.RecordHTTPRequest(r.Method, route, status, elapsed)
		logging.Debug(s.logger, "http request",
			logging.FieldMethod, r.Method,
			logging.FieldPath, r.URL.Path,
			logging.FieldStatusCode, status,
			logging.FieldDurationMS, elapsed.Milliseconds(),
			logging.FieldRequestID, middleware.GetReqID(r.Context()),
		)
	})
}
