package http

import (
	stdhttp "net/http"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

func (h *Handler) CreateResource(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.NewResource
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.CreateResource(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusCreated, res)
}

func (h *Handler) GetResource(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.svc.GetResource(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, res)
}

func (h *Handler) ResourcesByType(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	grouped, err := h.svc.ResourcesByType(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, grouped)
}

func (h *Handler) ResourcesByAuthor(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "author_id")
	if !ok {
		return
	}
	h.listResources(w, r, model.Filter{AuthorID: &id})
}

func (h *Handler) ResourcesBySubject(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "subject_id")
	if !ok {
		return
	}
	h.listResources(w, r, model.Filter{SubjectID: &id})
}

func (h *Handler) listResources(w stdhttp.ResponseWriter, r *stdhttp.Request, f model.Filter) {
	list, err := h.svc.ListResources(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, list)
}

func (h *Handler) UpdateResource(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p model.ResourcePatch
	if !decode(w, r, &p) {
		return
	}
	if p.Empty() {
		badRequest(w, "nothing to update")
		return
	}
	res, err := h.svc.UpdateResource(r.Context(), actor(r), id, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, res)
}
