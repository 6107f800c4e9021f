// Package server runs the HTTP and gRPC listeners as one unit: if either stops
// serving on its own, the whole application shuts down.
package server

import (
	"context"
	"errors"
	"log/slog"

	grpcsrv "github.com/webitel/push-bridge-service/infra/server/grpc"
	httpsrv "github.com/webitel/push-bridge-service/infra/server/http"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

var Module = fx.Module("servers",
	grpcsrv.Module,
	httpsrv.Module,
	fx.Invoke(Run),
)

type runner interface {
	Listen() error
	Run() error
	Stop(ctx context.Context) error
}

func Run(lc fx.Lifecycle, sd fx.Shutdowner, grpcServer *grpcsrv.Server, httpServer *httpsrv.Server, logger *slog.Logger) {
	servers := []runner{grpcServer, httpServer}
	var g errgroup.Group

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			for _, s := range servers {
				if err := s.Listen(); err != nil {
					return err
				}
			}
			for _, s := range servers {
				g.Go(s.Run)
			}

			go func() {
				if err := g.Wait(); err != nil {
					logger.Error("SERVER_FAILED", "err", err)
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var errs []error
			for _, s := range servers {
				errs = append(errs, s.Stop(ctx))
			}
			return errors.Join(errs...)
		},
	})
}
