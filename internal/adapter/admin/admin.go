// Package admin exposes the operational HTTP surface: health, metrics,
// and a live status snapshot over plain JSON or a websocket stream.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridguard/leop-server/internal/pipeline"
)

// statusInterval paces the websocket status stream.
const statusInterval = time.Second

// PoolStatus is the worker pool's status surface.
type PoolStatus interface {
	TotalConnections() int
	WorkerLoads() []int
}

// PipelineStatus is the pipeline's status surface.
type PipelineStatus interface {
	Stats() pipeline.QueueStats
}

// Server serves the admin endpoints on a dedicated port, separate from
// client traffic.
type Server struct {
	http     *http.Server
	pool     PoolStatus
	pipe     PipelineStatus
	started  time.Time
	upgrader websocket.Upgrader
}

// New builds the admin server listening on addr.
func New(addr string, pool PoolStatus, pipe PipelineStatus) *Server {
	s := &Server{
		pool:    pool,
		pipe:    pipe,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/status", s.handleStatus)
	r.Get("/ws", s.handleWS)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin server listening", slog.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("op=admin.Shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("op=admin.Serve: %w", err)
		}
		return nil
	}
}

type statusPayload struct {
	Status        string              `json:"status"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	Connections   int                 `json:"connections"`
	WorkerLoads   []int               `json:"worker_loads"`
	Queues        pipeline.QueueStats `json:"queues"`
	Timestamp     time.Time           `json:"timestamp"`
}

func (s *Server) snapshot() statusPayload {
	return statusPayload{
		Status:        "ok",
		UptimeSeconds: time.Since(s.started).Seconds(),
		Connections:   s.pool.TotalConnections(),
		WorkerLoads:   s.pool.WorkerLoads(),
		Queues:        s.pipe.Stats(),
		Timestamp:     time.Now().UTC(),
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

// handleWS streams a status snapshot every second until the peer goes
// away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer func() { _ = conn.Close() }()

	// drain control frames so pings and close are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.snapshot()); err != nil {
			return
		}
		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("status encode failed", slog.Any("error", err))
	}
}
