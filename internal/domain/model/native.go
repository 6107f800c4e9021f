// Package model holds the native state objects handed to the bridge by the push SDK.
//
// Every field the SDK may leave unset is a pointer: nil means the platform did not
// report it, which the bridge adapters translate into null/empty payload fields.
package model

// PermissionState is one side of a permission transition.
type PermissionState struct {
	Status      *string `json:"status"`
	HasPrompted *bool   `json:"hasPrompted"`
	Provisional *bool   `json:"provisional"`
	// Android reports a plain boolean instead of a status.
	Permission *bool `json:"permission"`
}

type PermissionStateChanges struct {
	To   *PermissionState `json:"to"`
	From *PermissionState `json:"from"`
}

type PushSubscriptionState struct {
	ID      *string `json:"id"`
	Token   *string `json:"token"`
	OptedIn *bool   `json:"optedIn"`
}

type PushSubscriptionChangedState struct {
	Previous *PushSubscriptionState `json:"previous"`
	Current  *PushSubscriptionState `json:"current"`
}

type UserState struct {
	OnesignalID *string `json:"onesignalId"`
	ExternalID  *string `json:"externalId"`
}

type UserChangedState struct {
	Current *UserState `json:"current"`
}

type ActionButton struct {
	ID   *string `json:"id"`
	Text *string `json:"text"`
	Icon *string `json:"icon"`
}

type Notification struct {
	NotificationID *string         `json:"notificationId"`
	Title          *string         `json:"title"`
	Body           *string         `json:"body"`
	Subtitle       *string         `json:"subtitle"`
	LaunchURL      *string         `json:"launchURL"`
	Sound          *string         `json:"sound"`
	Badge          *int            `json:"badge"`
	Category       *string         `json:"category"`
	GroupKey       *string         `json:"groupKey"`
	CollapseID     *string         `json:"collapseId"`
	AdditionalData map[string]any  `json:"additionalData"`
	ActionButtons  []*ActionButton `json:"actionButtons"`
	RawPayload     *string         `json:"rawPayload"`
}

// DisplayControl is the SDK handle that decides whether a foreground
// notification is shown. Exactly one of the methods takes effect.
type DisplayControl interface {
	Display()
	PreventDefault()
}

type NotificationWillDisplayEvent struct {
	Notification *Notification `json:"notification"`
	// Control is never serialized; it stays on the native side of the bridge.
	Control DisplayControl `json:"-"`
}

type NotificationClickResult struct {
	ActionID *string `json:"actionId"`
	URL      *string `json:"url"`
}

type NotificationClickEvent struct {
	Notification *Notification           `json:"notification"`
	Result       *NotificationClickResult `json:"result"`
}

type InAppMessage struct {
	MessageID *string `json:"messageId"`
}

type InAppMessageClickResult struct {
	ActionID       *string `json:"actionId"`
	URL            *string `json:"url"`
	URLTarget      *string `json:"urlTarget"`
	ClosingMessage *bool   `json:"closingMessage"`
}

type InAppMessageClickEvent struct {
	Message *InAppMessage            `json:"message"`
	Result  *InAppMessageClickResult `json:"result"`
}

// InAppMessageLifecycleEvent is shared by the four display/dismiss phases.
type InAppMessageLifecycleEvent struct {
	Message *InAppMessage `json:"message"`
}
