package amqp_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/push-bridge-service/config"
	"github.com/webitel/push-bridge-service/infra/pubsub"
	"github.com/webitel/push-bridge-service/internal/adapter/sdk"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	"github.com/webitel/push-bridge-service/internal/handler/amqp"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fired struct {
	name  event.Name
	state any
}

type pipeline struct {
	publish func(t *testing.T, name event.Name, body string)
	fired   chan fired
	poison  <-chan *message.Message
}

func newPipeline(t *testing.T, app string) *pipeline {
	t.Helper()
	cfg := &config.Config{}
	cfg.AMQP.App = app
	cfg.AMQP.Exchange = "push_native"
	cfg.AMQP.Queue = "push_bridge.native"

	provider := pubsub.NewMemoryProvider(watermill.NopLogger{})
	t.Cleanup(func() { _ = provider.Close() })

	loopback := sdk.NewLoopback(newTestLogger())
	p := &pipeline{fired: make(chan fired, 16)}
	for _, name := range event.Names() {
		_, err := loopback.Subscribe(name, func(state any) { p.fired <- fired{name, state} })
		require.NoError(t, err)
	}

	router, err := amqp.NewWatermillRouter(watermill.NopLogger{})
	require.NoError(t, err)
	h := amqp.NewNativeHandler(cfg, newTestLogger(), loopback)
	require.NoError(t, h.RegisterHandlers(router, provider))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = router.Close()
	})

	poisonSub, err := provider.Subscriber(cfg.AMQP.Queue+amqp.PoisonSuffix, cfg.AMQP.Exchange)
	require.NoError(t, err)
	p.poison, err = poisonSub.Subscribe(ctx, cfg.AMQP.Queue+amqp.PoisonSuffix)
	require.NoError(t, err)

	require.NoError(t, amqp.RunRouter(ctx, router))

	pub, err := provider.Publisher(cfg.AMQP.Exchange)
	require.NoError(t, err)

	// In memory the subscription topic is matched literally.
	topic := amqp.NativeTopic(h.App())
	p.publish = func(t *testing.T, name event.Name, body string) {
		t.Helper()
		msg := message.NewMessage(watermill.NewUUID(), []byte(body))
		msg.Metadata.Set("x-routing-key", amqp.NativeRoutingKey("shop", name))
		require.NoError(t, pub.Publish(topic, msg))
	}
	return p
}

func (p *pipeline) next(t *testing.T) fired {
	t.Helper()
	select {
	case f := <-p.fired:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("native callback not fired")
		return fired{}
	}
}

func (p *pipeline) none(t *testing.T) {
	t.Helper()
	select {
	case f := <-p.fired:
		t.Fatalf("unexpected callback %s", f.name)
	case <-time.After(50 * time.Millisecond):
	}
}

// poisoned waits for the next message parked on the poison queue.
func (p *pipeline) poisoned(t *testing.T) *message.Message {
	t.Helper()
	select {
	case msg := <-p.poison:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("message not poisoned")
		return nil
	}
}

func envelope(t *testing.T, v map[string]any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestNativeHandler_FiresCallbacks(t *testing.T) {
	p := newPipeline(t, "*")

	t.Run("Event from the envelope", func(t *testing.T) {
		p.publish(t, event.PermissionChanged, envelope(t, map[string]any{
			"app":   "shop",
			"event": "permission-changed",
			"state": map[string]any{"to": map[string]any{"status": "authorized"}},
		}))

		f := p.next(t)
		assert.Equal(t, event.PermissionChanged, f.name)
		st, ok := f.state.(*model.PermissionStateChanges)
		require.True(t, ok)
		assert.Equal(t, "authorized", *st.To.Status)
	})

	t.Run("Event from the routing key", func(t *testing.T) {
		p.publish(t, event.UserStateChanged, envelope(t, map[string]any{
			"state": map[string]any{"current": map[string]any{"externalId": "u-1"}},
		}))

		f := p.next(t)
		assert.Equal(t, event.UserStateChanged, f.name)
	})

	t.Run("Order survives the bus", func(t *testing.T) {
		for _, id := range []string{"a", "b", "c"} {
			p.publish(t, event.InAppMessageWillDisplay, envelope(t, map[string]any{
				"state": map[string]any{"message": map[string]any{"messageId": id}},
			}))
		}
		for _, id := range []string{"a", "b", "c"} {
			st := p.next(t).state.(*model.InAppMessageLifecycleEvent)
			assert.Equal(t, id, *st.Message.MessageID)
		}
	})
}

func TestNativeHandler_PoisonPills(t *testing.T) {
	p := newPipeline(t, "*")

	bad := []string{
		`{"state":`,
		envelope(t, map[string]any{"event": "user-state-changed"}),
		envelope(t, map[string]any{"event": "outcome-sent", "state": map[string]any{}}),
		envelope(t, map[string]any{"state": "not-an-object"}),
	}
	for _, body := range bad {
		p.publish(t, event.UserStateChanged, body)
	}

	// Rejected envelopes skip the retries and land on the poison queue as published.
	for _, body := range bad {
		msg := p.poisoned(t)
		assert.Equal(t, body, string(msg.Payload))
		assert.Contains(t, msg.Metadata.Get(middleware.ReasonForPoisonedKey), amqp.ErrRejected.Error())
	}
	p.none(t)

	// The consumer is still alive after parking every bad message.
	p.publish(t, event.UserStateChanged, envelope(t, map[string]any{"state": map[string]any{}}))
	assert.Equal(t, event.UserStateChanged, p.next(t).name)
}

func TestNativeHandler_AppFilter(t *testing.T) {
	p := newPipeline(t, "shop")

	p.publish(t, event.UserStateChanged, envelope(t, map[string]any{"app": "bank", "state": map[string]any{}}))
	p.none(t)
	select {
	case msg := <-p.poison:
		t.Fatalf("foreign app poisoned: %s", msg.Payload)
	default:
	}

	p.publish(t, event.UserStateChanged, envelope(t, map[string]any{"app": "shop", "state": map[string]any{}}))
	assert.Equal(t, event.UserStateChanged, p.next(t).name)
}

func TestNativeTopic(t *testing.T) {
	assert.Equal(t, "push_native.*.*.v1", amqp.NativeTopic("*"))
	assert.Equal(t, "push_native.shop.notification-clicked.v1", amqp.NativeRoutingKey("shop", event.NotificationClicked))
}
