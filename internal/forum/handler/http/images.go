package http

import (
	"mime/multipart"
	stdhttp "net/http"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/service"
)

const maxUploadSize = 5 * service.MaxImageSize

func (h *Handler) ListImages(kind model.Kind) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		atts, err := h.svc.ListImages(r.Context(), kind, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, stdhttp.StatusOK, atts)
	}
}

// UploadImages takes multipart field "images", one part per file.
func (h *Handler) UploadImages(kind model.Kind) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		r.Body = stdhttp.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(service.MaxImageSize); err != nil {
			badRequest(w, "expected multipart form with images")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		headers := r.MultipartForm.File["images"]
		uploads := make([]service.Upload, 0, len(headers))
		var files []multipart.File
		defer func() {
			for _, f := range files {
				_ = f.Close()
			}
		}()
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				badRequest(w, "unreadable file "+fh.Filename)
				return
			}
			files = append(files, f)
			uploads = append(uploads, service.Upload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        f,
			})
		}

		atts, err := h.svc.AddImages(r.Context(), actor(r), kind, id, uploads)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, stdhttp.StatusCreated, atts)
	}
}

type deleteImagesRequest struct {
	IDs []int64 `json:"images_ids"`
}

// DeleteImages answers 200 when no ids were given and 204 otherwise.
func (h *Handler) DeleteImages(kind model.Kind) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req deleteImagesRequest
		if !decode(w, r, &req) {
			return
		}
		if _, err := h.svc.DeleteImages(r.Context(), actor(r), kind, id, req.IDs); err != nil {
			h.writeError(w, r, err)
			return
		}
		if len(req.IDs) == 0 {
			writeJSON(w, stdhttp.StatusOK, map[string]any{"detail": "no images to delete"})
			return
		}
		w.WriteHeader(stdhttp.StatusNoContent)
	}
}
