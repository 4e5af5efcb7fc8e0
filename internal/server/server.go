// Package server exposes the metric store over HTTP.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dicklesworthstone/hostinfo/internal/metrics"
	"github.com/Dicklesworthstone/hostinfo/internal/store"
)

const writeWait = 5 * time.Second

// Server serves read-only views of a Store.
type Server struct {
	store    *store.Store
	logger   *slog.Logger
	interval time.Duration
	upgrader websocket.Upgrader
}

// New returns a Server. interval paces the websocket stream. If logger is
// nil, a discard logger is used.
func New(st *store.Store, interval time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		store:    st,
		logger:   logger,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.HandleFunc("/getcpuinfo", s.cpu).Methods(http.MethodGet)
	r.HandleFunc("/getraminfo", s.memory).Methods(http.MethodGet)
	r.HandleFunc("/getdiskinfo", s.disk).Methods(http.MethodGet)
	r.HandleFunc("/getosinfo", s.os).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/snapshot", s.snapshot).Methods(http.MethodGet)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.stream).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) cpu(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.CPU())
}

func (s *Server) memory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Memory())
}

func (s *Server) disk(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Disk())
}

func (s *Server) os(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.OS())
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status  string            `json:"status"`
	Domains map[string]string `json:"domains"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "ok", Domains: make(map[string]string, len(store.Domains))}
	code := http.StatusOK
	for _, d := range store.Domains {
		st := s.store.State(d)
		status.Domains[d.String()] = st.String()
		if st != store.StateReady {
			status.Status = "initializing"
			code = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, code, status)
}

// stream pushes a snapshot immediately and then once per interval until the
// client goes away.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	// Hijacked conns keep the server's read deadline.
	_ = conn.SetReadDeadline(time.Time{})

	// Drain client frames so close messages are noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(s.store.Snapshot()); err != nil {
			s.logger.Debug("websocket write failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}
