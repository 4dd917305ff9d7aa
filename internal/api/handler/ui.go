package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/videosorter/pkg/ui"
)

// UIHandler serves the phone upload page.
type UIHandler struct{}

// NewUIHandler creates a new UI handler.
func NewUIHandler() *UIHandler {
	return &UIHandler{}
}

// Page serves the upload page at / and GET /upload.
func (h *UIHandler) Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(ui.UploadHTML)
}

// Asset serves /upload.{ext}.
func (h *UIHandler) Asset(w http.ResponseWriter, r *http.Request) {
	data, ctype, ok := ui.Asset("upload." + chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Write(data)
}
