package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/internal/service"
	"github.com/iconidentify/videosorter/pkg/drives"
)

// ExportHandler handles export-related HTTP requests.
type ExportHandler struct {
	exportSvc *service.ExportService
	logger    *slog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exportSvc *service.ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		exportSvc: exportSvc,
		logger:    logger,
	}
}

// ExportStartResponse is the response for starting an export.
type ExportStartResponse struct {
	ExportID string `json:"exportId,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// Start handles POST /api/v1/exports. The copy runs in the background;
// progress arrives as export:progress events.
func (h *ExportHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req service.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DriveID == "" {
		writeError(w, http.StatusBadRequest, "driveId is required")
		return
	}

	exportID, err := h.exportSvc.StartExportAsync(req)
	if err != nil {
		var spaceErr *domain.InsufficientSpaceError
		switch {
		case errors.Is(err, domain.ErrExportInProgress):
			writeJSON(w, http.StatusConflict, ExportStartResponse{
				Status:  "conflict",
				Message: "An export is already in progress",
			})
		case errors.Is(err, domain.ErrDriveNotFound):
			writeError(w, http.StatusNotFound, "drive not found")
		case errors.As(err, &spaceErr):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":     spaceErr.Error(),
				"required":  spaceErr.Required,
				"available": spaceErr.Available,
			})
		case errors.Is(err, domain.ErrDestinationNotFound),
			errors.Is(err, domain.ErrNoVideosSelected):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to start export", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to start export")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, ExportStartResponse{
		ExportID: exportID,
		Status:   "started",
		Message:  "Export started successfully",
	})
}

// Status handles GET /api/v1/exports/status
func (h *ExportHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.exportSvc.Status())
}

// History handles GET /api/v1/exports
func (h *ExportHandler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.ExportRecord{"exports": h.exportSvc.History()})
}

// Abort handles POST /api/v1/exports/abort
func (h *ExportHandler) Abort(w http.ResponseWriter, r *http.Request) {
	if err := h.exportSvc.Abort(); err != nil {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Export abort requested",
	})
}

// DriveHandler lists detected drives.
type DriveHandler struct {
	source service.DriveSource
}

// NewDriveHandler creates a new drive handler.
func NewDriveHandler(source service.DriveSource) *DriveHandler {
	return &DriveHandler{source: source}
}

// List handles GET /api/v1/drives
func (h *DriveHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.source.Drives()
	if list == nil {
		list = []drives.Drive{}
	}
	writeJSON(w, http.StatusOK, map[string][]drives.Drive{"drives": list})
}
