package http

import (
	"log/slog"

	"github.com/webitel/push-bridge-service/internal/adapter/sdk"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/registry"
	"github.com/webitel/push-bridge-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("http-handler",
	fx.Provide(
		func(l *slog.Logger, b *bridge.Bridge, reg registry.Registrar, lb *sdk.Loopback, d service.Displayer) *Handler {
			return NewHandler(l.With("component", "http"), b, reg, lb, d)
		},
		NewMetrics,
		NewRouter,
	),
)
