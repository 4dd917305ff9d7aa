package handler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/iconidentify/videosorter/internal/domain"
)

// UploadField is the multipart field carrying video files.
const UploadField = "files"

// sniffLen is how much of a part is buffered for content detection.
const sniffLen = 3072

var allowedMIMETypes = map[string]bool{
	"video/mp4":        true,
	"video/mkv":        true,
	"video/avi":        true,
	"video/mov":        true,
	"video/wmv":        true,
	"video/flv":        true,
	"video/webm":       true,
	"video/x-matroska": true,
	"video/quicktime":  true,
	"video/x-msvideo":  true,
	"video/x-ms-wmv":   true,
}

var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFilename replaces every character outside [A-Za-z0-9.-] with '_'.
func SanitizeFilename(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// IsAllowedVideo reports whether either the MIME type or the extension
// identifies a video.
func IsAllowedVideo(mimeType, filename string) bool {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil && allowedMIMETypes[strings.ToLower(mt)] {
		return true
	}
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// UploadCallback receives each stored file, in request order.
type UploadCallback func(domain.UploadedFile) error

// UploadConfig holds upload limits and the target directory.
type UploadConfig struct {
	Dir         string
	MaxFileSize int64
	MaxFiles    int
}

// UploadHandler accepts multipart video uploads from phones.
type UploadHandler struct {
	cfg      UploadConfig
	onUpload UploadCallback
	logger   *slog.Logger
	now      func() time.Time
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(cfg UploadConfig, onUpload UploadCallback, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		cfg:      cfg,
		onUpload: onUpload,
		logger:   logger,
		now:      time.Now,
	}
}

// FailedUpload is a stored file whose callback failed.
type FailedUpload struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// UploadResponse is the JSON response after an upload.
type UploadResponse struct {
	Success  bool                  `json:"success"`
	Uploaded []domain.UploadedFile `json:"uploaded"`
	Failed   []FailedUpload        `json:"failed"`
	Rejected []FailedUpload        `json:"rejected,omitempty"`
	Message  string                `json:"message"`
}

// uploadError is a request-level validation failure.
type uploadError struct {
	err     error
	message string
}

func (e *uploadError) Error() string { return e.message }
func (e *uploadError) Unwrap() error { return e.err }

// Upload handles POST /upload.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid upload", "expected multipart/form-data")
		return
	}

	stored, rejected, err := h.receive(mr)
	if err == nil && len(stored) == 0 && len(rejected) > 0 {
		err = &uploadError{err: domain.ErrFileTypeNotAllowed, message: rejected[0].Error}
	}
	if err != nil {
		h.removeAll(stored)
		var uerr *uploadError
		if errors.As(err, &uerr) {
			h.logger.Warn("upload rejected", "error", uerr.err, "reason", uerr.message, "remote_addr", r.RemoteAddr)
			h.fail(w, http.StatusBadRequest, uerr.message, "")
			return
		}
		h.logger.Error("upload failed", "error", err, "remote_addr", r.RemoteAddr)
		h.fail(w, http.StatusInternalServerError, "Upload failed", err.Error())
		return
	}

	if len(stored) == 0 {
		h.fail(w, http.StatusBadRequest, "No files uploaded", "")
		return
	}

	resp := UploadResponse{
		Success:  true,
		Uploaded: make([]domain.UploadedFile, 0, len(stored)),
		Failed:   []FailedUpload{},
		Rejected: rejected,
	}
	for _, f := range stored {
		if err := h.notify(f); err != nil {
			h.logger.Warn("upload callback failed", "filename", f.Filename, "error", err)
			resp.Failed = append(resp.Failed, FailedUpload{Filename: f.Filename, Error: err.Error()})
			continue
		}
		resp.Uploaded = append(resp.Uploaded, f)
	}
	resp.Message = fmt.Sprintf("Successfully uploaded %d file(s)", len(resp.Uploaded))

	h.logger.Info("upload complete",
		"uploaded", len(resp.Uploaded),
		"failed", len(resp.Failed),
		"rejected", len(rejected),
		"remote_addr", r.RemoteAddr,
	)
	writeJSON(w, http.StatusOK, resp)
}

// receive stores every acceptable file part in body order. Non-video
// parts are drained and reported as rejected.
func (h *UploadHandler) receive(mr *multipart.Reader) ([]domain.UploadedFile, []FailedUpload, error) {
	var stored []domain.UploadedFile
	var rejected []FailedUpload
	files := 0

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return stored, rejected, nil
		}
		if err != nil {
			return stored, rejected, fmt.Errorf("read multipart body: %w", err)
		}

		filename := part.FileName()
		if part.FormName() != UploadField || filename == "" {
			part.Close()
			continue
		}

		files++
		if files > h.cfg.MaxFiles {
			part.Close()
			return stored, rejected, &uploadError{
				err:     domain.ErrTooManyFiles,
				message: fmt.Sprintf("Too many files (max %d)", h.cfg.MaxFiles),
			}
		}

		f, ok, err := h.storePart(part, filename)
		part.Close()
		if err != nil {
			return stored, rejected, err
		}
		if !ok {
			rejected = append(rejected, FailedUpload{
				Filename: filename,
				Error:    fmt.Sprintf("File type not allowed: %s", f.MimeType),
			})
			continue
		}
		stored = append(stored, f)
	}
}

// storePart filters and writes one file part. It returns ok=false for a
// part that is not a video.
func (h *UploadHandler) storePart(part *multipart.Part, filename string) (domain.UploadedFile, bool, error) {
	mimeType := part.Header.Get("Content-Type")
	br := bufio.NewReaderSize(part, sniffLen)

	if !IsAllowedVideo(mimeType, filename) {
		// Phones often send application/octet-stream; trust the content.
		if mimeType != "" && !strings.HasPrefix(mimeType, "application/octet-stream") {
			return domain.UploadedFile{MimeType: mimeType}, false, nil
		}
		head, _ := br.Peek(sniffLen)
		detected := mimetype.Detect(head)
		if !strings.HasPrefix(detected.String(), "video/") {
			return domain.UploadedFile{MimeType: detected.String()}, false, nil
		}
		mimeType = detected.String()
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}

	out, savedAs, err := h.create(filename)
	if err != nil {
		return domain.UploadedFile{}, false, err
	}
	path := filepath.Join(h.cfg.Dir, savedAs)

	n, err := io.Copy(out, io.LimitReader(br, h.cfg.MaxFileSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > h.cfg.MaxFileSize {
		err = &uploadError{err: domain.ErrFileTooLarge, message: "File too large"}
	}
	if err != nil {
		os.Remove(path)
		var uerr *uploadError
		if errors.As(err, &uerr) {
			return domain.UploadedFile{}, false, err
		}
		return domain.UploadedFile{}, false, fmt.Errorf("save %s: %w", filename, err)
	}

	return domain.UploadedFile{
		ID:         domain.VideoID(uuid.NewString()),
		Filename:   filename,
		SavedAs:    savedAs,
		Path:       path,
		Size:       n,
		MimeType:   mimeType,
		UploadedAt: h.now().UTC(),
	}, true, nil
}

// create opens a new file named <unix millis>-<sanitized name>. A taken
// name moves the prefix forward by a millisecond.
func (h *UploadHandler) create(filename string) (*os.File, string, error) {
	if err := os.MkdirAll(h.cfg.Dir, 0755); err != nil {
		return nil, "", fmt.Errorf("create upload dir: %w", err)
	}
	safe := SanitizeFilename(filename)
	ts := h.now().UnixMilli()
	for i := 0; i < 100; i++ {
		savedAs := fmt.Sprintf("%d-%s", ts+int64(i), safe)
		f, err := os.OpenFile(filepath.Join(h.cfg.Dir, savedAs), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, savedAs, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create upload file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("create upload file: no free name for %s", safe)
}

// notify runs the callback, turning a panic into an error.
func (h *UploadHandler) notify(f domain.UploadedFile) (err error) {
	if h.onUpload == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("processing failed: %v", rec)
		}
	}()
	return h.onUpload(f)
}

func (h *UploadHandler) removeAll(files []domain.UploadedFile) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			h.logger.Warn("failed to remove rejected upload", "path", f.Path, "error", err)
		}
	}
}

// fail writes {"error": errMsg, "message": message}.
func (h *UploadHandler) fail(w http.ResponseWriter, status int, errMsg, message string) {
	body := map[string]string{"error": errMsg}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}
