package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/push-bridge-service/config"
	"github.com/webitel/push-bridge-service/internal/adapter/sdk"
	"go.uber.org/fx"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		func(cfg *config.Config, l *slog.Logger, lb *sdk.Loopback) *NativeHandler {
			return NewNativeHandler(cfg, l.With("component", "amqp"), lb)
		},
		NewWatermillRouter,
	),

	fx.Invoke(
		(*NativeHandler).RegisterHandlers,
		func(lc fx.Lifecycle, router *message.Router) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error { return RunRouter(context.Background(), router) },
				OnStop:  func(context.Context) error { return router.Close() },
			})
		},
	),
)
