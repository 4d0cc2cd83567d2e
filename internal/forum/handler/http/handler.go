package http

import (
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/auth"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/service"
)

const maxBodySize = 1 << 20

type Handler struct {
	svc      service.ForumService
	auth     *auth.Provider
	log      zerolog.Logger
	mediaDir string
}

type Option func(*Handler)

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithMedia serves files of a local blob store under /media/.
func WithMedia(dir string) Option {
	return func(h *Handler) { h.mediaDir = dir }
}

func New(svc service.ForumService, provider *auth.Provider, opts ...Option) *Handler {
	h := &Handler{svc: svc, auth: provider, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (h *Handler) writeError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	var rl *service.RateLimitError
	switch {
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(rl.RetryAfter), 10))
		writeJSON(w, stdhttp.StatusTooManyRequests, errorResponse{"RATE_LIMITED", rl.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, stdhttp.StatusBadRequest, errorResponse{"VALIDATION", err.Error()})
	case errors.Is(err, service.ErrAuthRequired):
		writeJSON(w, stdhttp.StatusUnauthorized, errorResponse{"AUTH_REQUIRED", err.Error()})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, stdhttp.StatusForbidden, errorResponse{"FORBIDDEN", "only the author or staff can do this"})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, stdhttp.StatusNotFound, errorResponse{"NOT_FOUND", err.Error()})
	case errors.Is(err, service.ErrRateLimited):
		writeJSON(w, stdhttp.StatusTooManyRequests, errorResponse{"RATE_LIMITED", err.Error()})
	default:
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, stdhttp.StatusInternalServerError, errorResponse{"INTERNAL", "internal error"})
	}
}

// retryAfterSeconds rounds up so a client never retries early.
func retryAfterSeconds(d time.Duration) int64 {
	secs := int64((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w stdhttp.ResponseWriter, detail string) {
	writeJSON(w, stdhttp.StatusBadRequest, errorResponse{"VALIDATION", detail})
}

// decode reads a JSON body of at most maxBodySize bytes into v.
func decode(w stdhttp.ResponseWriter, r *stdhttp.Request, v any) bool {
	body := stdhttp.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "bad json")
		return false
	}
	return true
}

func pathID(w stdhttp.ResponseWriter, r *stdhttp.Request, name string) (int64, bool) {
	id, err := parseInt64(r.PathValue(name))
	if err != nil || id <= 0 {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func actor(r *stdhttp.Request) model.Actor {
	return auth.ActorFrom(r.Context())
}
