package wsmarshaller

// Host → server command actions.
const (
	ActionAddListener    = "addListener"
	ActionRemoveListener = "removeListener"
	ActionDisplay        = "display"
	ActionPreventDefault = "preventDefault"
)

// System frame names.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventReply        = "reply"
)

// Command is a host request on an open session.
type Command struct {
	ID             string `json:"id"` // correlation id echoed in the reply
	Action         string `json:"action"`
	Event          string `json:"event,omitempty"`
	ListenerID     string `json:"listenerId,omitempty"`
	NotificationID string `json:"notificationId,omitempty"`
}

type Reply struct {
	ID         string `json:"id"`
	Ok         bool   `json:"ok"`
	ListenerID string `json:"listenerId,omitempty"`
	Error      string `json:"error,omitempty"`
}
