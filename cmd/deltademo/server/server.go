// Package server provides an importable HTTP server for the DELTA demo.
// This allows E2E tests to programmatically start/stop the server without
// running main().
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/wavry/delta/pkg/delta"
)

// Config holds server configuration options.
type Config struct {
	Addr         string        // Listen address (e.g., ":8080" or ":0" for random port)
	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout
}

// DefaultConfig returns a configuration suitable for testing.
// Uses ":0" to bind to a random available port.
func DefaultConfig() Config {
	return Config{
		Addr:         ":0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is an importable HTTP server driving a loopback WebRTC session
// whose sender is instrumented with delta.Controller, and exposing its
// live bitrate/fps/fec_ratio/state readout to the browser.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	mu         sync.Mutex
	running    bool

	session *loopbackSession
}

// NewServer creates a new server with the given configuration.
// The server is not started until Start() is called.
func NewServer(cfg Config) (*Server, error) {
	s := &Server{}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(HTMLPage))
	})
	mux.HandleFunc("/stats", s.handleStats)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// statsResponse is the JSON shape polled by the stats page.
type statsResponse struct {
	BitrateKbps uint32  `json:"bitrate_kbps"`
	FPS         uint16  `json:"fps"`
	FECRatio    float32 `json:"fec_ratio"`
	State       string  `json:"state"`
	RTTSmoothUs uint64  `json:"rtt_smooth_us"`
	RTTMinUs    uint64  `json:"rtt_min_us"`
	QueueDelay  uint64  `json:"queue_delay_us"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess == nil || sess.controller == nil {
		http.Error(w, "session not ready", http.StatusServiceUnavailable)
		return
	}

	snap := sess.controller.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsResponse{
		BitrateKbps: snap.TargetBitrateKbps,
		FPS:         snap.TargetFPS,
		FECRatio:    snap.FECRatio,
		State:       sess.controller.State().String(),
		RTTSmoothUs: snap.RTTSmoothUs,
		RTTMinUs:    snap.RTTMinUs,
		QueueDelay:  snap.QueueDelayUs,
	})
}

// Controller returns the demo session's delta.Controller, once Start has
// established the loopback connection. Returns nil before that.
func (s *Server) Controller() *delta.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.controller
}

// Start begins listening and serving HTTP requests, and establishes the
// loopback WebRTC session that drives the DELTA controller from a live
// RTCP round trip. Returns the actual address the server is listening on.
// This method is non-blocking - the server and session run in background
// goroutines.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.addr, nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	session, err := startLoopbackSession()
	if err != nil {
		ln.Close()
		return "", fmt.Errorf("failed to start loopback session: %w", err)
	}
	s.session = session

	s.listener = ln
	s.addr = ln.Addr().String()
	s.running = true

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			// Log but don't crash - server may have been shut down
		}
	}()

	return s.addr, nil
}

// Shutdown gracefully shuts down the server and the loopback session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	if s.session != nil {
		s.session.close()
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server is listening on.
// Returns empty string if server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
