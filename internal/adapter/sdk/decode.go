package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
)

var ErrEmptyBody = errors.New("sdk: empty native state")

// Decode parses a JSON native state into the typed object the SDK would hand
// to an observer of name.
func Decode(name event.Name, data []byte) (any, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}

	var state any
	switch name {
	case event.PermissionChanged:
		state = new(model.PermissionStateChanges)
	case event.SubscriptionChanged:
		state = new(model.PushSubscriptionChangedState)
	case event.UserStateChanged:
		state = new(model.UserChangedState)
	case event.NotificationWillDisplay:
		state = new(model.NotificationWillDisplayEvent)
	case event.NotificationClicked:
		state = new(model.NotificationClickEvent)
	case event.InAppMessageClicked:
		state = new(model.InAppMessageClickEvent)
	case event.InAppMessageWillDisplay, event.InAppMessageDidDisplay,
		event.InAppMessageWillDismiss, event.InAppMessageDidDismiss:
		state = new(model.InAppMessageLifecycleEvent)
	default:
		return nil, fmt.Errorf("decode %q: %w", name, event.ErrUnknownName)
	}

	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return state, nil
}

// FireJSON decodes and fires a native callback. Foreground notifications get a
// Control that logs the host's decision, since no real SDK is there to act on it.
func (l *Loopback) FireJSON(name event.Name, data []byte) (int, *Control, error) {
	state, err := Decode(name, data)
	if err != nil {
		return 0, nil, err
	}

	var ctl *Control
	if wd, ok := state.(*model.NotificationWillDisplayEvent); ok {
		id := ""
		if wd.Notification != nil && wd.Notification.NotificationID != nil {
			id = *wd.Notification.NotificationID
		}
		ctl = NewControl(id, l.logger)
		wd.Control = ctl
	}

	n := l.Fire(name, state)
	if n == 0 && ctl != nil {
		// Unobserved foreground notifications are shown by the SDK itself.
		ctl.Display()
	}
	return n, ctl, nil
}

// Decision is the host's verdict on a foreground notification.
type Decision string

const (
	DecisionPending   Decision = ""
	DecisionDisplay   Decision = "display"
	DecisionPrevented Decision = "prevented"
)

// Control is a model.DisplayControl that records the first decision only.
type Control struct {
	notificationID string
	logger         *slog.Logger

	once     sync.Once
	mu       sync.Mutex
	decision Decision
	done     chan struct{}
}

var _ model.DisplayControl = (*Control)(nil)

func NewControl(notificationID string, logger *slog.Logger) *Control {
	return &Control{
		notificationID: notificationID,
		logger:         logger,
		done:           make(chan struct{}),
	}
}

func (c *Control) Display()        { c.decide(DecisionDisplay) }
func (c *Control) PreventDefault() { c.decide(DecisionPrevented) }

func (c *Control) decide(d Decision) {
	c.once.Do(func() {
		c.mu.Lock()
		c.decision = d
		c.mu.Unlock()
		close(c.done)
		c.logger.Info("NOTIFICATION_DISPLAY_DECIDED", "notification_id", c.notificationID, "decision", string(d))
	})
}

func (c *Control) Decision() Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decision
}

// Done is closed once a decision has been made.
func (c *Control) Done() <-chan struct{} { return c.done }
