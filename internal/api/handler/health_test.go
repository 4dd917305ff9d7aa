package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iconidentify/videosorter/internal/session"
)

type fakeAddr struct {
	ip      string
	port    int
	running bool
}

func (f fakeAddr) LocalIP() string { return f.ip }
func (f fakeAddr) Port() int       { return f.port }
func (f fakeAddr) Running() bool   { return f.running }

func TestHealthHandler_Status(t *testing.T) {
	h := NewHealthHandler(fakeAddr{ip: "192.168.1.20", port: 3000})

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Uptime < 0 || resp.Timestamp == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHealthHandler_Info(t *testing.T) {
	h := NewHealthHandler(fakeAddr{ip: "192.168.1.20", port: 3000})

	rec := httptest.NewRecorder()
	h.Info(rec, httptest.NewRequest(http.MethodGet, "/info", nil))

	var resp InfoResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.IP != "192.168.1.20" || resp.Port != 3000 {
		t.Errorf("address = %s:%d", resp.IP, resp.Port)
	}
	if resp.UploadURL != "http://192.168.1.20:3000/upload" {
		t.Errorf("uploadUrl = %q", resp.UploadURL)
	}
}

func TestServerHandler_InfoCarriesToken(t *testing.T) {
	gate := session.NewGate()
	token, err := gate.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	qr := func(data string) string { return "https://qr.example/?data=" + data }
	h := NewServerHandler(fakeAddr{ip: "10.0.0.5", port: 8080, running: true}, gate, qr)

	rec := httptest.NewRecorder()
	h.Info(rec, httptest.NewRequest(http.MethodGet, "/api/v1/server", nil))

	var resp ServerInfoResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := "http://10.0.0.5:8080/?token=" + token
	if resp.UploadURL != want || resp.QRURL != want {
		t.Errorf("urls = %q / %q, want %q", resp.UploadURL, resp.QRURL, want)
	}
	if !strings.HasSuffix(resp.QRImageURL, want) {
		t.Errorf("qrImageUrl = %q", resp.QRImageURL)
	}
	if !resp.Running || !resp.Session.HasToken || resp.Session.CreatedAt == nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestServerHandler_InfoWithoutToken(t *testing.T) {
	h := NewServerHandler(fakeAddr{ip: "10.0.0.5", port: 8080}, session.NewGate(), nil)

	rec := httptest.NewRecorder()
	h.Info(rec, httptest.NewRequest(http.MethodGet, "/api/v1/server", nil))

	var resp ServerInfoResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.UploadURL != "http://10.0.0.5:8080/" {
		t.Errorf("uploadUrl = %q", resp.UploadURL)
	}
	if resp.QRImageURL != "" || resp.Session.HasToken || resp.Running {
		t.Errorf("unexpected response: %+v", resp)
	}
}
