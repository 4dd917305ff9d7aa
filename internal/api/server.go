package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/iconidentify/videosorter/internal/config"
)

// Address is where a started server can be reached on the LAN.
type Address struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// Server owns the upload listener. Start and Stop are idempotent.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	logger  *slog.Logger

	mu     sync.Mutex
	srv    *http.Server
	port   int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer creates a stopped server for cfg.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		port:   cfg.Port,
	}
}

// SetHandler installs the HTTP handler used by the next Start.
func (s *Server) SetHandler(h http.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Start binds the listener and serves in the background. Starting a
// running server returns its current address.
func (s *Server) Start() (Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return Address{IP: s.localIP(), Port: s.port}, nil
	}
	if s.handler == nil {
		return Address{}, errors.New("server has no handler")
	}

	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return Address{}, fmt.Errorf("listen on %s: %w", s.cfg.Address(), err)
	}
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcp.Port
	}

	// Request contexts derive from base so Stop can end event streams.
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	s.srv, s.cancel, s.done = srv, cancel, done
	addr := Address{IP: s.localIP(), Port: s.port}
	s.logger.Info("upload server running", "url", "http://"+net.JoinHostPort(addr.IP, strconv.Itoa(addr.Port)))
	return addr, nil
}

// Stop shuts the server down. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel, done := s.srv, s.cancel, s.done
	s.srv, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	cancel()
	err := srv.Shutdown(ctx)
	if err != nil {
		srv.Close()
	}
	<-done
	s.logger.Info("upload server stopped")
	return err
}

// Running reports whether the listener is open.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// Port returns the bound port, or the configured one before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// LocalIP returns the advertised LAN address.
func (s *Server) LocalIP() string {
	return s.localIP()
}

func (s *Server) localIP() string {
	if s.cfg.PublicHost != "" {
		return s.cfg.PublicHost
	}
	return LocalIP()
}

// LocalIP returns the first non-loopback IPv4 address of an interface
// that is up, or "localhost".
func LocalIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsLinkLocalUnicast() {
				return ip4.String()
			}
		}
	}
	return "localhost"
}
