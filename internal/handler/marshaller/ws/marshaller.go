package wsmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/webitel/push-bridge-service/internal/domain/event"
)

const cacheKey = "ws"

// WSEvent is the JSON frame every host sees, on WebSocket and on the message bus.
type WSEvent struct {
	Event   string `json:"event"` // e.g. "notification-clicked", "connected"
	ID      string `json:"id"`
	SentAt  int64  `json:"sent_at"`
	Payload any    `json:"payload"`
}

// MarshallDeliveryEvent encodes a bridged event once; later sessions reuse the bytes.
func MarshallDeliveryEvent(ev event.Eventer) ([]byte, error) {
	if cached, ok := ev.GetCached(cacheKey).([]byte); ok {
		return cached, nil
	}

	data, err := json.Marshal(&WSEvent{
		Event:   ev.GetName().String(),
		ID:      ev.GetID(),
		SentAt:  ev.GetOccurredAt(),
		Payload: ev.GetPayload(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.GetName(), err)
	}

	ev.SetCached(cacheKey, data)
	return data, nil
}

// MarshallSystemEvent encodes frames that do not come from the bridge
// ("connected", "disconnected", command replies).
func MarshallSystemEvent(name, id string, sentAt int64, payload any) ([]byte, error) {
	return json.Marshal(&WSEvent{
		Event:   name,
		ID:      id,
		SentAt:  sentAt,
		Payload: payload,
	})
}
