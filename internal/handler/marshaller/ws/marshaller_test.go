package wsmarshaller_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	wsmarshaller "github.com/webitel/push-bridge-service/internal/handler/marshaller/ws"
)

func TestMarshallDeliveryEvent(t *testing.T) {
	closing := true
	ev := event.New(&event.InAppMessageClickedPayload{
		Message: event.InAppMessage{MessageID: "iam-1"},
		Result:  event.InAppMessageClickResult{ClosingMessage: &closing},
	})

	data, err := wsmarshaller.MarshallDeliveryEvent(ev)
	require.NoError(t, err)

	expected := `{
		"event": "in-app-message-clicked",
		"id": "` + ev.GetID() + `",
		"sent_at": ` + strconv.FormatInt(ev.GetOccurredAt(), 10) + `,
		"payload": {
			"message": {"messageId": "iam-1"},
			"result": {"actionId": null, "url": null, "urlTarget": null, "closingMessage": true}
		}
	}`
	assert.JSONEq(t, expected, string(data))

	t.Run("Second call is served from the event cache", func(t *testing.T) {
		again, err := wsmarshaller.MarshallDeliveryEvent(ev)
		require.NoError(t, err)
		assert.Same(t, &data[0], &again[0])
	})
}

func TestMarshallSystemEvent(t *testing.T) {
	data, err := wsmarshaller.MarshallSystemEvent(wsmarshaller.EventReply, "c-1", 7, wsmarshaller.Reply{ID: "c-1", Ok: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"reply","id":"c-1","sent_at":7,"payload":{"id":"c-1","ok":true}}`, string(data))
}
