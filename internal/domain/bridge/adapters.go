package bridge

import (
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
)

// [ADAPTERS]
// One adapter per native callback kind. Each projects the SDK state object onto
// its payload variant and calls Emit exactly once. Missing fields never abort
// the emission: they surface as null/empty and are logged as degraded input.

// gaps collects the names of required fields the SDK left unset.
type gaps []string

func (g *gaps) add(field string) { *g = append(*g, field) }

func (b *Bridge) report(name event.Name, g gaps) {
	if len(g) == 0 {
		return
	}
	b.stats[name].degraded.Add(1)
	b.recorder.Degraded(name)
	b.logger.Warn("NATIVE_STATE_DEGRADED", "event", name, "missing", []string(g))
}

func (b *Bridge) OnPermissionChanged(st *model.PermissionStateChanges) {
	defer b.recoverCallback(event.PermissionChanged)

	var g gaps
	if st == nil {
		g.add("state")
		st = &model.PermissionStateChanges{}
	}
	p := &event.PermissionChangedPayload{
		To:   permissionState(st.To, "to", &g),
		From: permissionState(st.From, "from", &g),
	}

	b.report(event.PermissionChanged, g)
	b.Emit(event.PermissionChanged, p)
}

func (b *Bridge) OnSubscriptionChanged(st *model.PushSubscriptionChangedState) {
	defer b.recoverCallback(event.SubscriptionChanged)

	var g gaps
	if st == nil {
		g.add("state")
		st = &model.PushSubscriptionChangedState{}
	}
	p := &event.SubscriptionChangedPayload{
		Previous: subscriptionState(st.Previous, "previous", &g),
		Current:  subscriptionState(st.Current, "current", &g),
	}

	b.report(event.SubscriptionChanged, g)
	b.Emit(event.SubscriptionChanged, p)
}

func (b *Bridge) OnUserStateChanged(st *model.UserChangedState) {
	defer b.recoverCallback(event.UserStateChanged)

	var g gaps
	if st == nil || st.Current == nil {
		g.add("current")
		st = &model.UserChangedState{Current: &model.UserState{}}
	}
	p := &event.UserStateChangedPayload{
		Current: event.UserState{
			OnesignalID: nonEmpty(st.Current.OnesignalID),
			ExternalID:  nonEmpty(st.Current.ExternalID),
		},
	}

	b.report(event.UserStateChanged, g)
	b.Emit(event.UserStateChanged, p)
}

// OnNotificationWillDisplay parks the display decision for the host when one is
// listening. Otherwise the notification is shown right away and nothing is emitted.
// A parked notification whose event does not reach the channel is shown at once.
func (b *Bridge) OnNotificationWillDisplay(st *model.NotificationWillDisplayEvent) {
	defer b.recoverCallback(event.NotificationWillDisplay)

	var g gaps
	if st == nil {
		g.add("event")
		st = &model.NotificationWillDisplayEvent{}
	}
	p := &event.NotificationWillDisplayPayload{
		Notification: notification(st.Notification, "notification", &g),
	}

	var onDrop func()
	if st.Control != nil {
		if b.parker == nil || !b.IsAttached() || b.ListenerCount(event.NotificationWillDisplay) == 0 {
			st.Control.Display()
			b.stats[event.NotificationWillDisplay].dropped.Add(1)
			b.recorder.Dropped(event.NotificationWillDisplay, ReasonUnobserved)
			b.logger.Debug("NOTIFICATION_DISPLAYED_UNOBSERVED", "notification_id", p.Notification.NotificationID)
			return
		}
		id := p.Notification.NotificationID
		b.parker.Park(id, st.Control)
		// No host will decide on an event that never reached it.
		onDrop = func() {
			if b.parker.Display(id) {
				b.logger.Debug("NOTIFICATION_DISPLAYED_UNDELIVERED", "notification_id", id)
			}
		}
	}

	b.report(event.NotificationWillDisplay, g)
	b.emit(event.NotificationWillDisplay, p, onDrop)
}

func (b *Bridge) OnNotificationClicked(st *model.NotificationClickEvent) {
	defer b.recoverCallback(event.NotificationClicked)

	var g gaps
	if st == nil {
		g.add("event")
		st = &model.NotificationClickEvent{}
	}
	p := &event.NotificationClickedPayload{
		Notification: notification(st.Notification, "notification", &g),
	}
	if st.Result == nil {
		g.add("result")
	} else {
		p.Result = event.NotificationClickResult{
			ActionID: nonEmpty(st.Result.ActionID),
			URL:      nonEmpty(st.Result.URL),
		}
	}

	b.report(event.NotificationClicked, g)
	b.Emit(event.NotificationClicked, p)
}

func (b *Bridge) OnInAppMessageClicked(st *model.InAppMessageClickEvent) {
	defer b.recoverCallback(event.InAppMessageClicked)

	var g gaps
	if st == nil {
		g.add("event")
		st = &model.InAppMessageClickEvent{}
	}
	p := &event.InAppMessageClickedPayload{
		Message: inAppMessage(st.Message, &g),
	}
	if st.Result == nil {
		g.add("result")
	} else {
		p.Result = event.InAppMessageClickResult{
			ActionID:       nonEmpty(st.Result.ActionID),
			URL:            nonEmpty(st.Result.URL),
			URLTarget:      nonEmpty(st.Result.URLTarget),
			ClosingMessage: copyPtr(st.Result.ClosingMessage),
		}
	}

	b.report(event.InAppMessageClicked, g)
	b.Emit(event.InAppMessageClicked, p)
}

// OnInAppMessageLifecycle serves the four display/dismiss phases.
func (b *Bridge) OnInAppMessageLifecycle(phase event.Name, st *model.InAppMessageLifecycleEvent) {
	defer b.recoverCallback(phase)

	var g gaps
	if st == nil {
		g.add("event")
		st = &model.InAppMessageLifecycleEvent{}
	}
	p := event.NewInAppMessageLifecyclePayload(phase, inAppMessage(st.Message, &g))
	if p == nil {
		b.logger.Error("IAM_PHASE_UNKNOWN", "event", phase)
		return
	}

	b.report(phase, g)
	b.Emit(phase, p)
}

func permissionState(st *model.PermissionState, side string, g *gaps) *event.PermissionState {
	if st == nil {
		g.add(side)
		return nil
	}

	out := &event.PermissionState{
		HasPrompted: st.HasPrompted,
		Provisional: st.Provisional,
	}
	var status event.PermissionStatus
	switch {
	case st.Status != nil && *st.Status != "":
		status = event.PermissionStatus(*st.Status)
	case st.Permission != nil && *st.Permission:
		status = event.PermissionAuthorized
	case st.Permission != nil:
		status = event.PermissionDenied
	default:
		g.add(side + ".status")
		return out
	}
	out.Status = &status
	return out
}

func subscriptionState(st *model.PushSubscriptionState, side string, g *gaps) event.PushSubscriptionState {
	if st == nil {
		g.add(side)
		return event.PushSubscriptionState{}
	}
	if st.OptedIn == nil {
		g.add(side + ".optedIn")
	}
	return event.PushSubscriptionState{
		ID:      nonEmpty(st.ID),
		Token:   nonEmpty(st.Token),
		OptedIn: copyPtr(st.OptedIn),
	}
}

func notification(n *model.Notification, field string, g *gaps) event.Notification {
	if n == nil {
		g.add(field)
		return event.Notification{}
	}
	if n.NotificationID == nil || *n.NotificationID == "" {
		g.add(field + ".notificationId")
	}

	out := event.Notification{
		NotificationID: deref(n.NotificationID),
		Title:          deref(n.Title),
		Body:           deref(n.Body),
		Subtitle:       deref(n.Subtitle),
		LaunchURL:      deref(n.LaunchURL),
		Sound:          deref(n.Sound),
		Badge:          n.Badge,
		Category:       deref(n.Category),
		GroupKey:       deref(n.GroupKey),
		CollapseID:     deref(n.CollapseID),
		AdditionalData: n.AdditionalData,
		RawPayload:     deref(n.RawPayload),
	}
	for _, btn := range n.ActionButtons {
		if btn == nil {
			continue
		}
		out.ActionButtons = append(out.ActionButtons, event.ActionButton{
			ID:   deref(btn.ID),
			Text: deref(btn.Text),
			Icon: deref(btn.Icon),
		})
	}
	return out
}

func inAppMessage(m *model.InAppMessage, g *gaps) event.InAppMessage {
	if m == nil || m.MessageID == nil || *m.MessageID == "" {
		g.add("message.messageId")
		return event.InAppMessage{}
	}
	return event.InAppMessage{MessageID: *m.MessageID}
}

// nonEmpty maps both nil and "" to nil so the wire shows null.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

// copyPtr detaches the payload from SDK-owned memory.
func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
