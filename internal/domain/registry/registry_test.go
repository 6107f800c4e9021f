package registry_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	"github.com/webitel/push-bridge-service/internal/domain/registry"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockBinder struct{ mock.Mock }

func (m *mockBinder) Attach(ch bridge.Channel) error { return m.Called(ch).Error(0) }
func (m *mockBinder) Detach()                        { m.Called() }

func meta(transport string) model.SessionMetadata {
	return model.SessionMetadata{Transport: transport, Platform: "test"}
}

func TestConnector(t *testing.T) {
	t.Run("Send and receive in order", func(t *testing.T) {
		c := registry.NewConnector(context.Background(), meta("ws"), 4)
		defer c.Close()

		first := event.New(&event.UserStateChangedPayload{})
		second := event.New(&event.PermissionChangedPayload{})
		require.True(t, c.Send(first, 10*time.Millisecond))
		require.True(t, c.Send(second, 10*time.Millisecond))

		assert.Same(t, first, <-c.Recv())
		assert.Same(t, second, <-c.Recv())
	})

	t.Run("Full buffer sheds low priority", func(t *testing.T) {
		c := registry.NewConnector(context.Background(), meta("ws"), 1)
		defer c.Close()

		require.True(t, c.Send(event.New(&event.InAppMessageDidDisplayPayload{}), time.Millisecond))
		assert.False(t, c.Send(event.New(&event.InAppMessageDidDismissPayload{}), time.Millisecond))
		assert.Equal(t, uint64(1), c.Dropped())
	})

	t.Run("High priority evicts a lower one", func(t *testing.T) {
		c := registry.NewConnector(context.Background(), meta("ws"), 2)
		defer c.Close()

		require.True(t, c.Send(event.New(&event.InAppMessageDidDisplayPayload{}), time.Millisecond))
		require.True(t, c.Send(event.New(&event.InAppMessageDidDismissPayload{}), time.Millisecond))
		click := event.New(&event.NotificationClickedPayload{})
		assert.True(t, c.Send(click, time.Millisecond))

		<-c.Recv()
		assert.Same(t, click, <-c.Recv())
		assert.Equal(t, uint64(1), c.Dropped())
	})

	t.Run("Full buffer keeps same kind order", func(t *testing.T) {
		c := registry.NewConnector(context.Background(), meta("ws"), 2)
		defer c.Close()

		sent := make([]event.Eventer, 3)
		for i := range sent {
			sent[i] = event.New(&event.InAppMessageWillDisplayPayload{})
		}
		require.True(t, c.Send(sent[0], 5*time.Millisecond))
		require.True(t, c.Send(sent[1], 5*time.Millisecond))
		assert.False(t, c.Send(sent[2], 5*time.Millisecond))

		assert.Same(t, sent[0], <-c.Recv())
		assert.Same(t, sent[1], <-c.Recv())
		assert.Equal(t, uint64(1), c.Dropped())
	})

	t.Run("High priority never evicts its own kind", func(t *testing.T) {
		c := registry.NewConnector(context.Background(), meta("grpc"), 2)
		defer c.Close()

		first := event.New(&event.NotificationClickedPayload{})
		second := event.New(&event.NotificationClickedPayload{})
		require.True(t, c.Send(first, time.Millisecond))
		require.True(t, c.Send(second, time.Millisecond))
		assert.False(t, c.Send(event.New(&event.NotificationClickedPayload{}), time.Millisecond))

		assert.Same(t, first, <-c.Recv())
		assert.Same(t, second, <-c.Recv())
	})

	t.Run("Freed slot is reused before the timeout", func(t *testing.T) {
		c := registry.NewConnector(context.Background(), meta("ws"), 1)
		defer c.Close()

		first := event.New(&event.UserStateChangedPayload{})
		require.True(t, c.Send(first, time.Millisecond))
		go func() { <-c.Recv() }()

		assert.True(t, c.Send(event.New(&event.UserStateChangedPayload{}), time.Second))
		assert.Zero(t, c.Dropped())
	})

	t.Run("Closed connector refuses sends and signals done", func(t *testing.T) {
		c := registry.NewConnector(context.Background(), meta("grpc"), 1)
		c.Close()
		c.Close()

		assert.False(t, c.Send(event.New(&event.UserStateChangedPayload{}), time.Millisecond))
		select {
		case <-c.Done():
		default:
			t.Fatal("done not closed")
		}
	})

	t.Run("Metadata is kept", func(t *testing.T) {
		c := registry.NewConnector(context.Background(), meta("pubsub"), 1)
		defer c.Close()
		assert.Equal(t, "pubsub", c.GetMetadata().Transport)
		assert.NotEqual(t, c.GetID(), registry.NewConnector(context.Background(), meta("ws"), 1).GetID())
	})
}

func TestFanout_Lifecycle(t *testing.T) {
	binder := new(mockBinder)
	f := registry.NewFanout(binder, registry.WithLogger(newTestLogger()), registry.WithSendTimeout(5*time.Millisecond))

	binder.On("Attach", f).Return(nil).Once()
	a := registry.NewConnector(context.Background(), meta("ws"), 4)
	b := registry.NewConnector(context.Background(), meta("grpc"), 4)

	require.NoError(t, f.Register(a))
	require.NoError(t, f.Register(b))
	assert.Equal(t, 2, f.Sessions())
	binder.AssertNumberOfCalls(t, "Attach", 1)

	assert.True(t, f.Unregister(a.GetID()))
	assert.False(t, f.Unregister(a.GetID()))
	binder.AssertNotCalled(t, "Detach")

	binder.On("Detach").Return().Once()
	assert.True(t, f.Unregister(b.GetID()))
	assert.Zero(t, f.Sessions())
	binder.AssertExpectations(t)
}

func TestFanout_AttachFailureRollsBack(t *testing.T) {
	binder := new(mockBinder)
	f := registry.NewFanout(binder, registry.WithLogger(newTestLogger()))
	binder.On("Attach", f).Return(bridge.ErrClosed).Once()

	err := f.Register(registry.NewConnector(context.Background(), meta("ws"), 1))
	assert.ErrorIs(t, err, bridge.ErrClosed)
	assert.Zero(t, f.Sessions())
}

func TestFanout_Send(t *testing.T) {
	newFanout := func(t *testing.T) *registry.Fanout {
		binder := new(mockBinder)
		binder.On("Attach", mock.Anything).Return(nil)
		binder.On("Detach").Return()
		return registry.NewFanout(binder, registry.WithLogger(newTestLogger()), registry.WithSendTimeout(5*time.Millisecond))
	}

	t.Run("Every session gets the event", func(t *testing.T) {
		f := newFanout(t)
		a := registry.NewConnector(context.Background(), meta("ws"), 2)
		b := registry.NewConnector(context.Background(), meta("grpc"), 2)
		require.NoError(t, f.Register(a))
		require.NoError(t, f.Register(b))

		ev := event.New(&event.NotificationClickedPayload{})
		require.NoError(t, f.Send(context.Background(), ev))

		assert.Same(t, ev, <-a.Recv())
		assert.Same(t, ev, <-b.Recv())
	})

	t.Run("No sessions is an error", func(t *testing.T) {
		f := newFanout(t)
		err := f.Send(context.Background(), event.New(&event.UserStateChangedPayload{}))
		assert.ErrorIs(t, err, registry.ErrNoSessions)
	})

	t.Run("All sessions saturated is an error", func(t *testing.T) {
		f := newFanout(t)
		a := registry.NewConnector(context.Background(), meta("ws"), 1)
		require.NoError(t, f.Register(a))
		require.True(t, a.Send(event.New(&event.InAppMessageDidDisplayPayload{}), time.Millisecond))

		err := f.Send(context.Background(), event.New(&event.InAppMessageDidDismissPayload{}))
		assert.ErrorIs(t, err, registry.ErrNoDelivery)
	})

	t.Run("Stalled sessions share one send budget", func(t *testing.T) {
		binder := new(mockBinder)
		binder.On("Attach", mock.Anything).Return(nil)
		f := registry.NewFanout(binder, registry.WithLogger(newTestLogger()), registry.WithSendTimeout(100*time.Millisecond))

		for range 4 {
			conn := registry.NewConnector(context.Background(), meta("ws"), 1)
			t.Cleanup(conn.Close)
			require.NoError(t, f.Register(conn))
			require.True(t, conn.Send(event.New(&event.UserStateChangedPayload{}), time.Millisecond))
		}

		start := time.Now()
		err := f.Send(context.Background(), event.New(&event.PermissionChangedPayload{}))
		assert.ErrorIs(t, err, registry.ErrNoDelivery)
		assert.Less(t, time.Since(start), 250*time.Millisecond)
	})

	t.Run("Expired context skips every session", func(t *testing.T) {
		f := newFanout(t)
		a := registry.NewConnector(context.Background(), meta("ws"), 2)
		t.Cleanup(a.Close)
		require.NoError(t, f.Register(a))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := f.Send(ctx, event.New(&event.UserStateChangedPayload{}))
		assert.ErrorIs(t, err, registry.ErrNoDelivery)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Shutdown closes sessions", func(t *testing.T) {
		f := newFanout(t)
		a := registry.NewConnector(context.Background(), meta("ws"), 1)
		require.NoError(t, f.Register(a))

		f.Shutdown()

		assert.Zero(t, f.Sessions())
		select {
		case <-a.Done():
		default:
			t.Fatal("session left open")
		}
	})
}

func TestFanout_DrivesBridge(t *testing.T) {
	b := bridge.New(nil, bridge.WithLogger(newTestLogger()))
	t.Cleanup(b.Close)
	f := registry.NewFanout(b, registry.WithLogger(newTestLogger()))

	b.Emit(event.UserStateChanged, &event.UserStateChangedPayload{})
	assert.False(t, b.IsAttached())

	conn := registry.NewConnector(context.Background(), meta("ws"), 4)
	require.NoError(t, f.Register(conn))
	assert.True(t, b.IsAttached())

	b.Emit(event.UserStateChanged, &event.UserStateChangedPayload{})
	select {
	case ev := <-conn.Recv():
		assert.Equal(t, event.UserStateChanged, ev.GetName())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	f.Unregister(conn.GetID())
	assert.False(t, b.IsAttached())
}
