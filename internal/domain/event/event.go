package event

import (
	"errors"
	"fmt"
)

// ErrUnknownName is returned when a string is not part of the bridged vocabulary.
var ErrUnknownName = errors.New("unknown event name")

// Name is the fixed identifier a host runtime subscribes to.
type Name string

// [VOCABULARY_V5]
// The closed set of bridged lifecycle events. Adding a name is a versioned change
// of the host contract.
const (
	PermissionChanged       Name = "permission-changed"
	SubscriptionChanged     Name = "subscription-changed"
	UserStateChanged        Name = "user-state-changed"
	NotificationWillDisplay Name = "notification-will-display-in-foreground"
	NotificationClicked     Name = "notification-clicked"
	InAppMessageClicked     Name = "in-app-message-clicked"
	InAppMessageWillDisplay Name = "in-app-message-will-display"
	InAppMessageDidDisplay  Name = "in-app-message-did-display"
	InAppMessageWillDismiss Name = "in-app-message-will-dismiss"
	InAppMessageDidDismiss  Name = "in-app-message-did-dismiss"
)

var vocabulary = [...]Name{
	PermissionChanged,
	SubscriptionChanged,
	UserStateChanged,
	NotificationWillDisplay,
	NotificationClicked,
	InAppMessageClicked,
	InAppMessageWillDisplay,
	InAppMessageDidDisplay,
	InAppMessageWillDismiss,
	InAppMessageDidDismiss,
}

// Names returns the vocabulary in declaration order.
func Names() []Name {
	out := make([]Name, len(vocabulary))
	copy(out, vocabulary[:])
	return out
}

func (n Name) Valid() bool {
	for _, v := range vocabulary {
		if v == n {
			return true
		}
	}
	return false
}

func (n Name) String() string { return string(n) }

// ParseName maps a wire string onto the vocabulary.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownName, s)
	}
	return n, nil
}

type Priority int32

const (
	PriorityLow    Priority = 10
	PriorityNormal Priority = 20
	PriorityHigh   Priority = 30
)

// PriorityOf reports the delivery priority for a name. User actions outrank state sync.
func PriorityOf(n Name) Priority {
	switch n {
	case NotificationClicked, InAppMessageClicked:
		return PriorityHigh
	case InAppMessageDidDisplay, InAppMessageDidDismiss:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Eventer defines the contract for all data packets flowing through the bridge.
type Eventer interface {
	GetID() string
	GetName() Name
	GetPriority() Priority
	GetOccurredAt() int64
	GetPayload() Payload
	GetCached(key string) any
	SetCached(key string, v any)
}
