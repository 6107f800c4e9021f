// Package grpcsrv hosts the gRPC listener the delivery handlers register on.
package grpcsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/webitel/push-bridge-service/config"
	"github.com/webitel/push-bridge-service/infra/server/grpc/interceptors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

var Module = fx.Module("grpc-server", fx.Provide(New))

type Server struct {
	*grpc.Server
	addr   string
	logger *slog.Logger
	lis    net.Listener
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	l := logger.With("component", "grpc")

	// [INTERCEPTOR_CHAIN] recovery first so a panicking handler never tears the listener down
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recovery.WithRecoveryHandler(func(p any) error {
				l.Error("GRPC_HANDLER_PANIC", "panic", p)
				return status.Error(codes.Internal, "internal error")
			})),
			logging.StreamServerInterceptor(interceptorLogger(l),
				logging.WithLogOnEvents(logging.StartCall, logging.FinishCall)),
			interceptors.NewStreamSessionInterceptor(),
		),
	)
	reflection.Register(srv)

	return &Server{
		Server: srv,
		addr:   cfg.Service.GRPCAddr,
		logger: l,
	}
}

// Listen binds the port synchronously so a busy port fails the fx start.
func (s *Server) Listen() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	s.lis = lis
	s.logger.Info("GRPC_SERVER_LISTENING", "addr", lis.Addr().String())
	return nil
}

// Run serves until Stop. A graceful stop is not an error.
func (s *Server) Run() error {
	if err := s.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Addr is the bound address, useful when configured with port 0.
func (s *Server) Addr() string {
	if s.lis == nil {
		return s.addr
	}
	return s.lis.Addr().String()
}

// Stop drains streams until ctx expires, then cuts them.
func (s *Server) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.Server.Stop()
	}
	s.logger.Info("GRPC_SERVER_STOPPED")
	return nil
}

func interceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}
