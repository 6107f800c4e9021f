// Package httpsrv hosts the HTTP listener: WebSocket sessions, stats, metrics
// and the native callback injection routes.
package httpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/webitel/push-bridge-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("http-server", fx.Provide(New))

type Server struct {
	srv    *http.Server
	logger *slog.Logger
	lis    net.Listener
}

func New(cfg *config.Config, router chi.Router, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Service.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "http"),
	}
}

func (s *Server) Listen() error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.srv.Addr, err)
	}
	s.lis = lis
	s.logger.Info("HTTP_SERVER_LISTENING", "addr", lis.Addr().String())
	return nil
}

func (s *Server) Run() error {
	if err := s.srv.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	if s.lis == nil {
		return s.srv.Addr
	}
	return s.lis.Addr().String()
}

// Stop stops accepting requests. Hijacked WebSocket connections are not tracked
// by http.Server; they end when the fanout shuts their sessions down.
func (s *Server) Stop(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.logger.Info("HTTP_SERVER_STOPPED")
	return err
}
