package http

import (
	stdhttp "net/http"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

func (h *Handler) CreateQuestion(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	var req model.NewQuestion
	if !decode(w, r, &req) {
		return
	}
	q, err := h.svc.CreateQuestion(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusCreated, q)
}

func (h *Handler) GetQuestion(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q, err := h.svc.GetQuestion(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, q)
}

func (h *Handler) QuestionsBySubject(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "subject_id")
	if !ok {
		return
	}
	h.listQuestions(w, r, model.Filter{SubjectID: &id})
}

func (h *Handler) QuestionsByAuthor(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "author_id")
	if !ok {
		return
	}
	h.listQuestions(w, r, model.Filter{AuthorID: &id})
}

func (h *Handler) listQuestions(w stdhttp.ResponseWriter, r *stdhttp.Request, f model.Filter) {
	list, err := h.svc.ListQuestions(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, list)
}

func (h *Handler) UpdateQuestion(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p model.QuestionPatch
	if !decode(w, r, &p) {
		return
	}
	if p.Empty() {
		badRequest(w, "nothing to update")
		return
	}
	q, err := h.svc.UpdateQuestion(r.Context(), actor(r), id, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, stdhttp.StatusOK, q)
}
