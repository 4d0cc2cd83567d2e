package http

import (
	"context"
	stdhttp "net/http"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

type reportResponse struct {
	Detail  string `json:"detail"`
	Count   int    `json:"count"`
	Deleted bool   `json:"deleted"`
}

type reportFunc func(ctx context.Context, actor model.Actor, id int64) (model.ReportOutcome, error)

func (h *Handler) report(fn reportFunc) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		out, err := fn(r.Context(), actor(r), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, stdhttp.StatusOK, reportResponse{Detail: "reported", Count: out.Count, Deleted: out.Deleted})
	}
}

func (h *Handler) deleteContent(kind model.Kind) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := h.svc.Delete(r.Context(), actor(r), kind, id); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(stdhttp.StatusNoContent)
	}
}
