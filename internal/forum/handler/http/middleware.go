package http

import (
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/auth"
)

type statusRecorder struct {
	stdhttp.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() stdhttp.ResponseWriter { return s.ResponseWriter }

// identify attaches the caller to the request context. A malformed or
// expired bearer token is rejected; no token means an anonymous caller.
func (h *Handler) identify(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		a, err := h.auth.Identify(r)
		if err != nil {
			detail := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				detail = "token expired"
			}
			writeJSON(w, stdhttp.StatusUnauthorized, errorResponse{"AUTH_REQUIRED", detail})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), a)))
	})
}

func (h *Handler) accessLog(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: stdhttp.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("actor", actor(r).ID).
			Msg("request")
	})
}
