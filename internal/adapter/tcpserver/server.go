package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/gridguard/leop-server/internal/adapter/observability"
	"github.com/gridguard/leop-server/internal/domain"
)

// Server owns the listen socket and feeds accepted connections to the
// worker pool.
type Server struct {
	ln   net.Listener
	pool *WorkerPool
}

// NewServer binds the listen socket. A bind failure is fatal to
// startup.
func NewServer(addr string, pool *WorkerPool) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("op=tcpserver.Listen addr=%s: %w", addr, err)
	}
	return &Server{ln: ln, pool: pool}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled. Cancellation closes
// the listener to unblock Accept. Pool-full connections are closed
// immediately.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	slog.Info("tcp server listening", slog.String("addr", s.ln.Addr().String()))
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("op=tcpserver.Accept: %w", err)
		}

		if err := s.pool.Add(conn); err != nil {
			if errors.Is(err, domain.ErrPoolFull) {
				observability.ConnectionsRejectedTotal.Inc()
				slog.Warn("connection rejected, pool full",
					slog.String("remote", conn.RemoteAddr().String()))
			}
			_ = conn.Close()
		}
	}
}
