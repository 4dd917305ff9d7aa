package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/videosorter/internal/api/handler"
	mw "github.com/iconidentify/videosorter/internal/api/middleware"
	"github.com/iconidentify/videosorter/internal/config"
	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/internal/repository"
	"github.com/iconidentify/videosorter/internal/service"
	"github.com/iconidentify/videosorter/internal/session"
	"github.com/iconidentify/videosorter/pkg/drives"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noDrives struct{}

func (noDrives) Drives() []drives.Drive { return nil }

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	logger := testLogger()
	dir := t.TempDir()

	gate := session.NewGate()
	token, err := gate.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	store := repository.NewMetadataStore(filepath.Join(dir, "metadata.json"), time.Hour, logger)
	t.Cleanup(func() { store.Close() })
	events := service.NewEventService(service.DefaultEventServiceConfig(), logger)
	videos := service.NewVideoService(store, events, logger)
	exports := service.NewExportService(service.NewExporter(drives.OSSpace{}, logger), store, noDrives{}, events, logger)

	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, logger)
	upload := handler.NewUploadHandler(handler.UploadConfig{Dir: dir, MaxFileSize: 1 << 20, MaxFiles: 5},
		func(f domain.UploadedFile) error { _, err := videos.HandleUpload(f); return err }, logger)
	h := Handlers{
		UI:     handler.NewUIHandler(),
		Upload: upload,
		Health: handler.NewHealthHandler(srv),
		Server: handler.NewServerHandler(srv, gate, nil),
		Video:  handler.NewVideoHandler(videos, logger),
		Drive:  handler.NewDriveHandler(noDrives{}),
		Export: handler.NewExportHandler(exports, logger),
		Event:  handler.NewEventHandler(events, logger),
	}
	return NewRouter(h, gate), token
}

func TestRouter_PublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/", "/upload", "/upload.js", "/upload.css"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestRouter_GatedRoutes(t *testing.T) {
	r, token := newTestRouter(t)

	gated := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/status"},
		{http.MethodGet, "/info"},
		{http.MethodPost, "/upload"},
		{http.MethodGet, "/api/v1/videos"},
		{http.MethodGet, "/api/v1/server"},
		{http.MethodGet, "/api/v1/drives"},
		{http.MethodGet, "/no/such/path"},
	}
	for _, g := range gated {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(g.method, g.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", g.method, g.path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status?token="+token, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /status with query token: status = %d, want 200", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	req.Header.Set(mw.TokenHeader, token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/v1/videos with header token: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no/such/path?token="+token, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path with token: status = %d, want 404", rec.Code)
	}
}

func TestRouter_WrongMethodIsGated(t *testing.T) {
	r, token := newTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/status"},
		{http.MethodDelete, "/info"},
		{http.MethodPut, "/upload"},
		{http.MethodGet, "/api/v1/exports/abort"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", tt.method, tt.path, rec.Code)
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path+"?token="+token, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s with token: status = %d, want 405", tt.method, tt.path, rec.Code)
		}
	}
}

func TestRouter_WrongTokenRejected(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats?token=deadbeef", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
