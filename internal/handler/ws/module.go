package ws

import (
	"log/slog"

	"github.com/webitel/push-bridge-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery-ws",
	fx.Provide(func(l *slog.Logger, d service.Deliverer, disp service.Displayer) *WSHandler {
		return NewWSHandler(l.With("component", "ws"), d, disp)
	}),
)
