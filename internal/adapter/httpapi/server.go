// Package httpapi exposes the simulation service over HTTP and a WebSocket
// endpoint that streams scenario turns as they are produced.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"virtual-courtroom/internal/infra/config"
	"virtual-courtroom/internal/infra/middleware"
	"virtual-courtroom/internal/usecase/simulation"
)

const shutdownTimeout = 5 * time.Second

// Server serves the courtroom API.
type Server struct {
	svc       *simulation.Service
	cfg       config.ServerConfig
	logger    *slog.Logger
	httpSrv   *http.Server
	boundAddr string
	started   time.Time
}

// NewServer creates a server for svc.
func NewServer(svc *simulation.Service, cfg config.ServerConfig, logger *slog.Logger) *Server {
	return &Server{
		svc:     svc,
		cfg:     cfg,
		logger:  logger,
		started: time.Now(),
	}
}

// Handler builds the routed handler with security headers and, when
// enabled, per-client rate limiting. The limiter's cleanup stops with ctx.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	if s.cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(ctx, s.cfg.RateLimit, http.HandlerFunc(rateLimited))
		h = rl.Middleware(h)
	}
	return middleware.SecurityHeaders(h)
}

// Start listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("httpapi listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()

	s.httpSrv = &http.Server{
		Handler:           s.Handler(ctx),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("courtroom api started", "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		if err := s.Stop(context.Background()); err != nil {
			s.logger.Warn("courtroom api shutdown", "error", err)
		}
	}()

	if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpapi serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// BoundAddr returns the address the server bound to. Only valid after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }
