package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/videosorter/internal/classifier"
	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/internal/service"
)

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	videoSvc *service.VideoService
	logger   *slog.Logger
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(videoSvc *service.VideoService, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{
		videoSvc: videoSvc,
		logger:   logger,
	}
}

// ListResponse contains the filtered video list.
type ListResponse struct {
	Videos []domain.Video `json:"videos"`
	Total  int            `json:"total"`
}

// CategoryRequest is the body for PUT /api/v1/videos/{videoID}/category.
type CategoryRequest struct {
	Category string `json:"category"`
}

// BulkClassifyRequest is the body for POST /api/v1/videos/bulk-classify.
type BulkClassifyRequest struct {
	IDs      []domain.VideoID `json:"ids"`
	Category string           `json:"category"`
}

// ClassifyRequest is the body for POST /api/v1/classify.
type ClassifyRequest struct {
	Filenames []string `json:"filenames"`
}

// ClassifyResponse carries one result per filename, in input order.
type ClassifyResponse struct {
	Results []classifier.Result `json:"results"`
}

// List handles GET /api/v1/videos
// Query parameters:
//   - category: one of the fixed categories
//   - exported: "true" or "false"
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter domain.VideoFilter

	if c := r.URL.Query().Get("category"); c != "" {
		category, err := domain.ParseCategory(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		filter.Category = &category
	}
	if e := r.URL.Query().Get("exported"); e != "" {
		exported, err := strconv.ParseBool(e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "exported must be true or false")
			return
		}
		filter.Exported = &exported
	}

	videos := h.videoSvc.List(filter)
	if videos == nil {
		videos = []domain.Video{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Videos: videos, Total: len(videos)})
}

// Get handles GET /api/v1/videos/{videoID}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.videoSvc.Get(domain.VideoID(chi.URLParam(r, "videoID")))
	if err != nil {
		h.handleError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetCategory handles PUT /api/v1/videos/{videoID}/category
func (h *VideoHandler) SetCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v, err := h.videoSvc.Classify(domain.VideoID(chi.URLParam(r, "videoID")), req.Category)
	if err != nil {
		h.handleError(w, "classify", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// BulkClassify handles POST /api/v1/videos/bulk-classify
func (h *VideoHandler) BulkClassify(w http.ResponseWriter, r *http.Request) {
	var req BulkClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	videos, err := h.videoSvc.BulkClassify(req.IDs, req.Category)
	if err != nil {
		h.handleError(w, "bulk classify", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Video{"videos": videos})
}

// Delete handles DELETE /api/v1/videos/{videoID}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	v, err := h.videoSvc.Delete(domain.VideoID(chi.URLParam(r, "videoID")))
	if err != nil {
		h.handleError(w, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      v.ID,
	})
}

// Classify handles POST /api/v1/classify. Nothing is stored.
func (h *VideoHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{Results: h.videoSvc.Preview(req.Filenames)})
}

// Suggest handles GET /api/v1/classify/suggest?q=
func (h *VideoHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]classifier.Suggestion{
		"suggestions": classifier.Suggest(r.URL.Query().Get("q")),
	})
}

// Categories handles GET /api/v1/categories
func (h *VideoHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.Category{"categories": domain.Categories()})
}

// Stats handles GET /api/v1/stats
func (h *VideoHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.videoSvc.Stats())
}

func (h *VideoHandler) handleError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrVideoNotFound):
		writeError(w, http.StatusNotFound, "video not found")
	case errors.Is(err, domain.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "invalid category")
	default:
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op+" video")
	}
}
