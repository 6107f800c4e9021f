package sdk_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/push-bridge-service/internal/adapter/sdk"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoopback_SubscribeAndFire(t *testing.T) {
	l := sdk.NewLoopback(newTestLogger())

	var got []any
	sub, err := l.Subscribe(event.UserStateChanged, func(state any) { got = append(got, state) })
	require.NoError(t, err)
	assert.True(t, l.Observing(event.UserStateChanged))

	state := &model.UserChangedState{}
	assert.Equal(t, 1, l.Fire(event.UserStateChanged, state))
	assert.Equal(t, 0, l.Fire(event.PermissionChanged, state))
	require.Len(t, got, 1)
	assert.Same(t, state, got[0])

	sub.Remove()
	sub.Remove()
	assert.False(t, l.Observing(event.UserStateChanged))
	assert.Equal(t, 0, l.Fire(event.UserStateChanged, state))
}

func TestLoopback_Errors(t *testing.T) {
	l := sdk.NewLoopback(newTestLogger())

	_, err := l.Subscribe(event.Name("OneSignal-userStateChanged"), func(any) {})
	assert.ErrorIs(t, err, event.ErrUnknownName)

	_, err = l.Subscribe(event.UserStateChanged, nil)
	assert.ErrorIs(t, err, sdk.ErrNilHandler)
}

func TestLoopback_ObserverPanicIsContained(t *testing.T) {
	l := sdk.NewLoopback(newTestLogger())
	_, err := l.Subscribe(event.NotificationClicked, func(any) { panic("boom") })
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.Equal(t, 1, l.Fire(event.NotificationClicked, nil))
	})
}

func TestDecode(t *testing.T) {
	t.Run("Permission change", func(t *testing.T) {
		state, err := sdk.Decode(event.PermissionChanged, []byte(`{"to":{"status":"denied"},"from":{"permission":true}}`))
		require.NoError(t, err)

		st, ok := state.(*model.PermissionStateChanges)
		require.True(t, ok)
		require.NotNil(t, st.To)
		assert.Equal(t, "denied", *st.To.Status)
		assert.True(t, *st.From.Permission)
	})

	t.Run("Every in-app phase shares one state type", func(t *testing.T) {
		for _, name := range []event.Name{
			event.InAppMessageWillDisplay, event.InAppMessageDidDisplay,
			event.InAppMessageWillDismiss, event.InAppMessageDidDismiss,
		} {
			state, err := sdk.Decode(name, []byte(`{"message":{"messageId":"iam-1"}}`))
			require.NoError(t, err)
			assert.IsType(t, &model.InAppMessageLifecycleEvent{}, state)
		}
	})

	t.Run("Bad input", func(t *testing.T) {
		_, err := sdk.Decode(event.UserStateChanged, nil)
		assert.ErrorIs(t, err, sdk.ErrEmptyBody)

		_, err = sdk.Decode(event.Name("outcome-sent"), []byte(`{}`))
		assert.ErrorIs(t, err, event.ErrUnknownName)

		_, err = sdk.Decode(event.UserStateChanged, []byte(`{"current":`))
		assert.Error(t, err)
	})
}

func TestFireJSON_AttachesDisplayControl(t *testing.T) {
	l := sdk.NewLoopback(newTestLogger())

	var seen *model.NotificationWillDisplayEvent
	_, err := l.Subscribe(event.NotificationWillDisplay, func(state any) {
		seen = state.(*model.NotificationWillDisplayEvent)
	})
	require.NoError(t, err)

	n, ctl, err := l.FireJSON(event.NotificationWillDisplay, []byte(`{"notification":{"notificationId":"n-9","title":"Hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NotNil(t, ctl)
	require.NotNil(t, seen)
	assert.Same(t, ctl, seen.Control)

	assert.Equal(t, sdk.DecisionPending, ctl.Decision())
	seen.Control.PreventDefault()
	seen.Control.Display()
	assert.Equal(t, sdk.DecisionPrevented, ctl.Decision())

	select {
	case <-ctl.Done():
	default:
		t.Fatal("decision not signalled")
	}
}

func TestFireJSON_UnobservedNotificationIsDisplayed(t *testing.T) {
	l := sdk.NewLoopback(newTestLogger())

	n, ctl, err := l.FireJSON(event.NotificationWillDisplay, []byte(`{"notification":{"notificationId":"n-1"}}`))
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NotNil(t, ctl)
	assert.Equal(t, sdk.DecisionDisplay, ctl.Decision())
}
