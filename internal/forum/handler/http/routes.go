package http

import (
	stdhttp "net/http"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

func (h *Handler) Routes() stdhttp.Handler {
	mux := stdhttp.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	})

	mux.HandleFunc("GET /resources/all", h.ResourcesByType)
	mux.HandleFunc("GET /resources/{id}", h.GetResource)
	mux.HandleFunc("GET /resources/author/{author_id}", h.ResourcesByAuthor)
	mux.HandleFunc("GET /resources/subject/{subject_id}", h.ResourcesBySubject)
	mux.HandleFunc("POST /resources/add", h.CreateResource)
	mux.HandleFunc("PUT /resources/update/{id}", h.UpdateResource)
	mux.HandleFunc("DELETE /resources/delete/{id}", h.deleteContent(model.KindResource))
	mux.HandleFunc("POST /resources/report/{id}", h.report(h.svc.ReportResource))

	mux.HandleFunc("GET /resources/question/{id}", h.GetQuestion)
	mux.HandleFunc("GET /resources/question/subject/{subject_id}", h.QuestionsBySubject)
	mux.HandleFunc("GET /resources/question/author/{author_id}", h.QuestionsByAuthor)
	mux.HandleFunc("POST /resources/question/add", h.CreateQuestion)
	mux.HandleFunc("PUT /resources/question/update/{id}", h.UpdateQuestion)
	mux.HandleFunc("DELETE /resources/question/delete/{id}", h.deleteContent(model.KindQuestion))
	mux.HandleFunc("POST /resources/question/report/{id}", h.report(h.svc.ReportQuestion))

	mux.HandleFunc("GET /resources/reply/{id}", h.GetReply)
	mux.HandleFunc("GET /resources/reply/question/{question_id}", h.RepliesOfQuestion)
	mux.HandleFunc("POST /resources/reply/add", h.CreateReply)
	mux.HandleFunc("PUT /resources/reply/update/{id}", h.UpdateReply)
	mux.HandleFunc("DELETE /resources/reply/delete/{id}", h.deleteContent(model.KindReply))
	mux.HandleFunc("POST /resources/reply/report/{id}", h.report(h.svc.ReportReply))

	for _, kind := range []model.Kind{model.KindQuestion, model.KindReply} {
		base := "/resources/" + string(kind) + "/images/{id}/"
		mux.HandleFunc("GET "+base+"view", h.ListImages(kind))
		mux.HandleFunc("POST "+base+"upload", h.UploadImages(kind))
		mux.HandleFunc("DELETE "+base+"delete", h.DeleteImages(kind))
	}

	if h.mediaDir != "" {
		mux.Handle("GET /media/", stdhttp.StripPrefix("/media/",
			stdhttp.FileServer(stdhttp.Dir(h.mediaDir)),
		))
	}

	return h.identify(h.accessLog(mux))
}
