package registry

import (
	"context"
	"log/slog"

	"github.com/webitel/push-bridge-service/config"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		// [CLEAN_INJECTION] Configure Fanout using Functional Options
		func(cfg *config.Config, b *bridge.Bridge, l *slog.Logger) *Fanout {
			return NewFanout(b,
				WithSendTimeout(cfg.Session.SendTimeout),
				WithLogger(l.With("component", "registry")),
			)
		},
		func(f *Fanout) Registrar { return f },
	),
	fx.Invoke(func(lc fx.Lifecycle, f *Fanout) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				f.Shutdown() // [GRACEFUL_SHUTDOWN] Close every host session
				return nil
			},
		})
	}),
)
