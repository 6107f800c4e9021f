package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/webitel/push-bridge-service/config"
	"github.com/webitel/push-bridge-service/infra/pubsub"
	"github.com/webitel/push-bridge-service/internal/adapter/sdk"
	"github.com/webitel/push-bridge-service/internal/domain/event"
)

const (
	// ------------------- TOPICS (ROUTING KEYS) -----------------
	// push_native.<app>.<event-name>.v1
	nativeTopicFormat = "push_native.%s.*.v1"

	// ------------------- QUEUES (CONSUMERS) --------------------
	PoisonSuffix = ".poison"

	HandlerNativeCallback = "ON_NATIVE_CALLBACK"
)

// NativeTopic is the binding key for one app, "*" for all of them.
func NativeTopic(app string) string { return fmt.Sprintf(nativeTopicFormat, app) }

// NativeRoutingKey is the key a host publishes a callback under.
func NativeRoutingKey(app string, name event.Name) string {
	return fmt.Sprintf("push_native.%s.%s.v1", app, name)
}

// Injector plays a JSON native state into the SDK observers.
type Injector interface {
	FireJSON(name event.Name, data []byte) (int, *sdk.Control, error)
}

type NativeHandler struct {
	logger   *slog.Logger
	injector Injector
	app      string
	exchange string
	queue    string
}

func NewNativeHandler(cfg *config.Config, logger *slog.Logger, injector Injector) *NativeHandler {
	app := cfg.AMQP.App
	if app == "" {
		app = "*"
	}
	return &NativeHandler{
		logger:   logger,
		injector: injector,
		app:      app,
		exchange: cfg.AMQP.Exchange,
		queue:    cfg.AMQP.Queue,
	}
}

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
}

// [REGISTRATION_PIPELINE]
// One queue for every callback kind keeps native order intact.
// Rejected callbacks go straight to the poison queue; any other failure is
// retried first and poisoned once the retries run out.
func (h *NativeHandler) RegisterHandlers(router *message.Router, provider pubsub.Provider) error {
	poisonPub, err := provider.Publisher(h.exchange)
	if err != nil {
		return err
	}
	poison, err := middleware.PoisonQueue(poisonPub, h.queue+PoisonSuffix)
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}
	rejected, err := middleware.PoisonQueueWithFilter(poisonPub, h.queue+PoisonSuffix, func(err error) bool {
		return errors.Is(err, ErrRejected)
	})
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}

	sub, err := provider.Subscriber(h.queue, h.exchange)
	if err != nil {
		return err
	}

	topic := NativeTopic(h.app)
	router.AddConsumerHandler(HandlerNativeCallback, topic, sub, Bind(h, h.OnNativeCallbackV1)).AddMiddleware(
		TraceIDMiddleware,
		LoggingMiddleware(h.logger),
		poison,
		NewRetryMiddleware(h.logger).Middleware,
		rejected,
		middleware.NewThrottle(500, time.Second).Middleware,
		middleware.Timeout(time.Second*30),
	)

	h.logger.Info("AMQP_PIPELINE_READY", "queue", h.queue, "exchange", h.exchange, "topic", topic)
	return nil
}

// RunRouter starts consuming once the fx app is up and stops on shutdown.
func RunRouter(ctx context.Context, router *message.Router) error {
	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(ctx) }()

	select {
	case <-router.Running():
		return nil
	case err := <-errCh:
		return fmt.Errorf("watermill router: %w", err)
	}
}

// App is the app filter, "*" when every app is accepted.
func (h *NativeHandler) App() string { return h.app }
