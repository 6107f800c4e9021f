package event

// Payload is the tagged union of bridged event bodies.
// Every variant is bound to exactly one Name.
type Payload interface {
	EventName() Name
}

var (
	_ Payload = (*PermissionChangedPayload)(nil)
	_ Payload = (*SubscriptionChangedPayload)(nil)
	_ Payload = (*UserStateChangedPayload)(nil)
	_ Payload = (*NotificationWillDisplayPayload)(nil)
	_ Payload = (*NotificationClickedPayload)(nil)
	_ Payload = (*InAppMessageClickedPayload)(nil)
	_ Payload = (*InAppMessageWillDisplayPayload)(nil)
	_ Payload = (*InAppMessageDidDisplayPayload)(nil)
	_ Payload = (*InAppMessageWillDismissPayload)(nil)
	_ Payload = (*InAppMessageDidDismissPayload)(nil)
)

// PermissionStatus mirrors the platform authorization states.
type PermissionStatus string

const (
	PermissionNotDetermined PermissionStatus = "notDetermined"
	PermissionDenied        PermissionStatus = "denied"
	PermissionAuthorized    PermissionStatus = "authorized"
	PermissionProvisional   PermissionStatus = "provisional"
	PermissionEphemeral     PermissionStatus = "ephemeral"
)

// PermissionState leaves Status null when the SDK reported none.
type PermissionState struct {
	Status      *PermissionStatus `json:"status"`
	HasPrompted *bool             `json:"hasPrompted,omitempty"`
	Provisional *bool             `json:"provisional,omitempty"`
}

// PermissionChangedPayload carries null for a side the SDK did not report.
type PermissionChangedPayload struct {
	To   *PermissionState `json:"to"`
	From *PermissionState `json:"from"`
}

func (*PermissionChangedPayload) EventName() Name { return PermissionChanged }

// PushSubscriptionState serializes unknown values as null, never as "" or false.
type PushSubscriptionState struct {
	ID      *string `json:"id"`
	Token   *string `json:"token"`
	OptedIn *bool   `json:"optedIn"`
}

type SubscriptionChangedPayload struct {
	Previous PushSubscriptionState `json:"previous"`
	Current  PushSubscriptionState `json:"current"`
}

func (*SubscriptionChangedPayload) EventName() Name { return SubscriptionChanged }

type UserState struct {
	OnesignalID *string `json:"onesignalId"`
	ExternalID  *string `json:"externalId"`
}

type UserStateChangedPayload struct {
	Current UserState `json:"current"`
}

func (*UserStateChangedPayload) EventName() Name { return UserStateChanged }

type ActionButton struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Icon string `json:"icon,omitempty"`
}

// Notification is the JSON-safe projection of a received push.
type Notification struct {
	NotificationID string         `json:"notificationId"`
	Title          string         `json:"title"`
	Body           string         `json:"body,omitempty"`
	Subtitle       string         `json:"subtitle,omitempty"`
	LaunchURL      string         `json:"launchURL,omitempty"`
	Sound          string         `json:"sound,omitempty"`
	Badge          *int           `json:"badge,omitempty"`
	Category       string         `json:"category,omitempty"`
	GroupKey       string         `json:"groupKey,omitempty"`
	CollapseID     string         `json:"collapseId,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
	ActionButtons  []ActionButton `json:"actionButtons,omitempty"`
	RawPayload     string         `json:"rawPayload,omitempty"`
}

type NotificationWillDisplayPayload struct {
	Notification Notification `json:"notification"`
}

func (*NotificationWillDisplayPayload) EventName() Name { return NotificationWillDisplay }

type NotificationClickResult struct {
	ActionID *string `json:"actionId"`
	URL      *string `json:"url"`
}

type NotificationClickedPayload struct {
	Notification Notification            `json:"notification"`
	Result       NotificationClickResult `json:"result"`
}

func (*NotificationClickedPayload) EventName() Name { return NotificationClicked }

type InAppMessage struct {
	MessageID string `json:"messageId"`
}

type InAppMessageClickResult struct {
	ActionID       *string `json:"actionId"`
	URL            *string `json:"url"`
	URLTarget      *string `json:"urlTarget"`
	ClosingMessage *bool   `json:"closingMessage"`
}

type InAppMessageClickedPayload struct {
	Message InAppMessage            `json:"message"`
	Result  InAppMessageClickResult `json:"result"`
}

func (*InAppMessageClickedPayload) EventName() Name { return InAppMessageClicked }

// [IAM_LIFECYCLE]
// One variant per phase keeps the name fixed at compile time.

type InAppMessageWillDisplayPayload struct {
	Message InAppMessage `json:"message"`
}

func (*InAppMessageWillDisplayPayload) EventName() Name { return InAppMessageWillDisplay }

type InAppMessageDidDisplayPayload struct {
	Message InAppMessage `json:"message"`
}

func (*InAppMessageDidDisplayPayload) EventName() Name { return InAppMessageDidDisplay }

type InAppMessageWillDismissPayload struct {
	Message InAppMessage `json:"message"`
}

func (*InAppMessageWillDismissPayload) EventName() Name { return InAppMessageWillDismiss }

type InAppMessageDidDismissPayload struct {
	Message InAppMessage `json:"message"`
}

func (*InAppMessageDidDismissPayload) EventName() Name { return InAppMessageDidDismiss }

// NewInAppMessageLifecyclePayload builds the variant that matches phase.
// It returns nil for a name outside the in-app lifecycle.
func NewInAppMessageLifecyclePayload(phase Name, msg InAppMessage) Payload {
	switch phase {
	case InAppMessageWillDisplay:
		return &InAppMessageWillDisplayPayload{Message: msg}
	case InAppMessageDidDisplay:
		return &InAppMessageDidDisplayPayload{Message: msg}
	case InAppMessageWillDismiss:
		return &InAppMessageWillDismissPayload{Message: msg}
	case InAppMessageDidDismiss:
		return &InAppMessageDidDismissPayload{Message: msg}
	default:
		return nil
	}
}
