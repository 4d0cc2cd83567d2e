package http

import (
	stdhttp "net/http"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

// CreateReply answers 200 with the new reply and an empty children list.
func (h *Handler) CreateReply(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.NewReply
	if !decode(w, r, &req) {
		return
	}
	node, err := h.svc.CreateReply(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, node)
}

func (h *Handler) GetReply(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	node, err := h.svc.GetReply(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, node)
}

func (h *Handler) RepliesOfQuestion(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "question_id")
	if !ok {
		return
	}
	nodes, err := h.svc.RepliesOfQuestion(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, nodes)
}

func (h *Handler) UpdateReply(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p model.ReplyPatch
	if !decode(w, r, &p) {
		return
	}
	if p.Empty() {
		badRequest(w, "nothing to update")
		return
	}
	node, err := h.svc.UpdateReply(r.Context(), actor(r), id, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, node)
}
