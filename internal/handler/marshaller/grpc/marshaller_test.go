package grpcmarshaller_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	grpcmarshaller "github.com/webitel/push-bridge-service/internal/handler/marshaller/grpc"
)

func TestMarshallDeliveryEvent(t *testing.T) {
	id, optedIn := "sub-1", true
	ev := event.New(&event.SubscriptionChangedPayload{
		Current: event.PushSubscriptionState{ID: &id, OptedIn: &optedIn},
	})

	frame, err := grpcmarshaller.MarshallDeliveryEvent(ev)
	require.NoError(t, err)

	m := frame.AsMap()
	assert.Equal(t, "subscription-changed", m["event"])
	assert.Equal(t, ev.GetID(), m["id"])
	assert.Equal(t, "NORMAL", m["priority"])

	payload := m["payload"].(map[string]any)
	current := payload["current"].(map[string]any)
	assert.Equal(t, "sub-1", current["id"])
	assert.Nil(t, current["token"])
	assert.Equal(t, true, current["optedIn"])

	again, err := grpcmarshaller.MarshallDeliveryEvent(ev)
	require.NoError(t, err)
	assert.Same(t, frame, again)
}

func TestMarshallSystemEvent(t *testing.T) {
	frame, err := grpcmarshaller.MarshallSystemEvent("connected", "c-1", 1, map[string]any{"ok": true})
	require.NoError(t, err)
	assert.Equal(t, "connected", frame.AsMap()["event"])
	assert.Equal(t, true, frame.AsMap()["payload"].(map[string]any)["ok"])
}
