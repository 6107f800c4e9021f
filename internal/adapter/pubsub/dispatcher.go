package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	wsmarshaller "github.com/webitel/push-bridge-service/internal/handler/marshaller/ws"
)

var ErrBreakerOpen = errors.New("event dispatcher: broker unavailable")

// EventDispatcher defines the high-level contract for outgoing events.
// This allows the sink to stay agnostic of the transport implementation.
type EventDispatcher interface {
	Publish(ctx context.Context, ev event.Eventer) error
}

// eventDispatcher is the concrete implementation (private).
type eventDispatcher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker
}

// BreakerSettings configures when a failing broker is skipped.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration // zero keeps the gobreaker default (60s)
	Logger      *slog.Logger
}

// NewEventDispatcher returns the interface instead of the pointer to the struct.
func NewEventDispatcher(pub message.Publisher, st BreakerSettings) EventDispatcher {
	maxFailures := st.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	logger := st.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &eventDispatcher{
		publisher: pub,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "outbound-publisher",
			Timeout: st.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("BREAKER_STATE_CHANGED", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Publish sends the WebSocket frame of ev to push_bridge.v1.<event-name>.
func (d *eventDispatcher) Publish(ctx context.Context, ev event.Eventer) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	payload, err := wsmarshaller.MarshallDeliveryEvent(ev)
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_id", ev.GetID())

	topic := Topic(ev.GetName())
	_, err = d.breaker.Execute(func() (interface{}, error) {
		return nil, d.publisher.Publish(topic, msg)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s", ErrBreakerOpen, topic)
	case err != nil:
		return fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Topic is the outbound routing key of a bridged event.
func Topic(name event.Name) string { return "push_bridge.v1." + name.String() }
