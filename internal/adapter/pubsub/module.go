package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/webitel/push-bridge-service/config"
	infrapubsub "github.com/webitel/push-bridge-service/infra/pubsub"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/service"
	"go.uber.org/fx"
)

// Module republishes bridged events when amqp.publish_outbound is set.
var Module = fx.Module("pubsub-sink",
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, p infrapubsub.Provider, d service.Deliverer, l *slog.Logger) error {
		if !cfg.AMQP.PublishOutbound {
			return nil
		}

		listen := make([]event.Name, 0, len(cfg.AMQP.OutboundEvents))
		for _, raw := range cfg.AMQP.OutboundEvents {
			name, err := event.ParseName(raw)
			if err != nil {
				return fmt.Errorf("amqp.outbound_events: %w", err)
			}
			listen = append(listen, name)
		}

		pub, err := p.Publisher(cfg.AMQP.OutboundExchange)
		if err != nil {
			return err
		}
		logger := l.With("component", "pubsub-sink")
		sink := NewSink(d, NewEventDispatcher(pub, BreakerSettings{
			MaxFailures: cfg.Breaker.MaxFailures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
			Logger:      logger,
		}), logger, listen)

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return sink.Start() },
			OnStop: func(context.Context) error {
				sink.Stop()
				return nil
			},
		})
		return nil
	}),
)
