package cmd

import (
	"log/slog"

	"github.com/webitel/push-bridge-service/config"
	infrapubsub "github.com/webitel/push-bridge-service/infra/pubsub"
	"github.com/webitel/push-bridge-service/infra/server"
	"github.com/webitel/push-bridge-service/internal/adapter/metrics"
	pubsubsink "github.com/webitel/push-bridge-service/internal/adapter/pubsub"
	"github.com/webitel/push-bridge-service/internal/adapter/sdk"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/registry"
	amqpdi "github.com/webitel/push-bridge-service/internal/handler/amqp"
	grpchandler "github.com/webitel/push-bridge-service/internal/handler/grpc"
	httphandler "github.com/webitel/push-bridge-service/internal/handler/http"
	wshandler "github.com/webitel/push-bridge-service/internal/handler/ws"
	"github.com/webitel/push-bridge-service/internal/service"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
		),
		fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
			fl := &fxevent.SlogLogger{Logger: l.With("component", "fx")}
			fl.UseLogLevel(slog.LevelDebug)
			return fl
		}),
		fx.Invoke(SetupTracing),
		sdk.Module,
		metrics.Module,
		service.Module,
		bridge.Module,
		registry.Module,
		infrapubsub.Module,
		amqpdi.Module,
		pubsubsink.Module,
		wshandler.Module,
		httphandler.Module,
		grpchandler.Module,
		server.Module,
	)
}
