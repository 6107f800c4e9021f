package service

import (
	"context"
	"log/slog"

	"github.com/webitel/push-bridge-service/config"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain services
		// [DECORATION_LAYER] Logging decorator around the core Deliverer
		func(cfg *config.Config, reg registry.Registrar, lst Listeners, logger *slog.Logger) Deliverer {
			return NewDeliveryMiddleware(NewDeliveryService(cfg, reg, lst), logger.With("component", "delivery"))
		},
		func(b *bridge.Bridge) Listeners { return b },
		func(cfg *config.Config, l *slog.Logger) *DisplayController {
			return NewDisplayController(cfg.Bridge.DisplayCacheSize, cfg.Bridge.DisplayTimeout, l.With("component", "display"))
		},
		func(c *DisplayController) bridge.DisplayParker { return c },
		func(c *DisplayController) Displayer { return c },
	),

	fx.Invoke(func(lc fx.Lifecycle, c *DisplayController) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				c.Purge() // [GRACEFUL_SHUTDOWN] Never strand a parked notification
				return nil
			},
		})
	}),
)
