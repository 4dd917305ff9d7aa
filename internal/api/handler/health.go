package handler

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/iconidentify/videosorter/internal/session"
)

var startTime = time.Now()

// AddressSource reports where the upload server can be reached.
type AddressSource interface {
	LocalIP() string
	Port() int
	Running() bool
}

// HealthHandler handles liveness and reachability endpoints.
type HealthHandler struct {
	addr AddressSource
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(addr AddressSource) *HealthHandler {
	return &HealthHandler{addr: addr}
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Timestamp string  `json:"timestamp"`
}

// InfoResponse is the JSON response for GET /info.
type InfoResponse struct {
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	UploadURL string `json:"uploadUrl"`
}

// Status handles GET /status. Uptime is in seconds.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "ok",
		Uptime:    time.Since(startTime).Seconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Info handles GET /info.
func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	ip, port := h.addr.LocalIP(), h.addr.Port()
	writeJSON(w, http.StatusOK, InfoResponse{
		IP:        ip,
		Port:      port,
		UploadURL: fmt.Sprintf("http://%s/upload", net.JoinHostPort(ip, strconv.Itoa(port))),
	})
}

// ServerHandler reports the shareable link and session state.
type ServerHandler struct {
	addr    AddressSource
	gate    *session.Gate
	qrImage func(data string) string
}

// NewServerHandler creates a new server info handler. qrImage builds the
// QR image URL for a link.
func NewServerHandler(addr AddressSource, gate *session.Gate, qrImage func(string) string) *ServerHandler {
	return &ServerHandler{addr: addr, gate: gate, qrImage: qrImage}
}

// ServerInfoResponse is the JSON response for GET /api/v1/server.
type ServerInfoResponse struct {
	IP         string       `json:"ip"`
	Port       int          `json:"port"`
	Running    bool         `json:"running"`
	UploadURL  string       `json:"uploadUrl"`
	QRURL      string       `json:"qrUrl"`
	QRImageURL string       `json:"qrImageUrl,omitempty"`
	Session    session.Info `json:"session"`
}

// Info handles GET /api/v1/server.
func (h *ServerHandler) Info(w http.ResponseWriter, r *http.Request) {
	ip, port := h.addr.LocalIP(), h.addr.Port()
	link := h.gate.UploadURL(ip, port)

	resp := ServerInfoResponse{
		IP:        ip,
		Port:      port,
		Running:   h.addr.Running(),
		UploadURL: link,
		QRURL:     link,
		Session:   h.gate.Info(),
	}
	if h.qrImage != nil {
		resp.QRImageURL = h.qrImage(link)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
