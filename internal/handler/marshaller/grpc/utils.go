package grpcmarshaller

import "github.com/webitel/push-bridge-service/internal/domain/event"

func mapPriority(p event.Priority) string {
	switch p {
	case event.PriorityLow:
		return "LOW"
	case event.PriorityNormal:
		return "NORMAL"
	case event.PriorityHigh:
		return "HIGH"
	default:
		return "PRIORITY_UNSPECIFIED"
	}
}

// System frame names, shared with the WebSocket wire.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)
