package bridge

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
)

// AddListener registers host interest in name. The first listener of a kind
// subscribes the matching native observer.
func (b *Bridge) AddListener(name event.Name) (ListenerID, error) {
	c, ok := b.stats[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("add listener %q: %w", name, event.ErrUnknownName)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return uuid.Nil, ErrClosed
	}
	if err := b.observeLocked(name); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	b.listeners[id] = name
	n := c.listeners.Add(1)
	b.recorder.Listeners(name, int(n))

	b.logger.Debug("LISTENER_ADDED", "event", name, "listener_id", id, "listeners", n)
	return id, nil
}

// RemoveListener drops one registration. It reports false for unknown ids.
// Removing the last listener of a kind unsubscribes its native observer
// unless the bridge observes eagerly.
func (b *Bridge) RemoveListener(id ListenerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	name, ok := b.listeners[id]
	if !ok {
		return false
	}
	delete(b.listeners, id)

	n := b.stats[name].listeners.Add(-1)
	b.recorder.Listeners(name, int(n))
	if n == 0 && !b.settings.eager {
		b.unobserveLocked(name)
	}

	b.logger.Debug("LISTENER_REMOVED", "event", name, "listener_id", id, "listeners", n)
	return true
}

// RemoveAllListeners drops every registration for name.
func (b *Bridge) RemoveAllListeners(name event.Name) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for id, n := range b.listeners {
		if n == name {
			delete(b.listeners, id)
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	b.stats[name].listeners.Store(0)
	b.recorder.Listeners(name, 0)
	if !b.settings.eager {
		b.unobserveLocked(name)
	}
	return removed
}

// ListenerCount is lock-free; native callback threads call it.
func (b *Bridge) ListenerCount(name event.Name) int {
	c, ok := b.stats[name]
	if !ok {
		return 0
	}
	return int(c.listeners.Load())
}

func (b *Bridge) observeLocked(name event.Name) error {
	if _, ok := b.subs[name]; ok {
		return nil
	}
	if b.sdk == nil {
		return nil
	}

	sub, err := b.sdk.Subscribe(name, b.handlerFor(name))
	if err != nil {
		return fmt.Errorf("observe %s: %w", name, err)
	}
	b.subs[name] = sub

	b.logger.Debug("NATIVE_OBSERVER_ADDED", "event", name)
	return nil
}

func (b *Bridge) unobserveLocked(name event.Name) {
	sub, ok := b.subs[name]
	if !ok {
		return
	}
	sub.Remove()
	delete(b.subs, name)

	b.logger.Debug("NATIVE_OBSERVER_REMOVED", "event", name)
}

// handlerFor routes a native state object to the adapter for name.
func (b *Bridge) handlerFor(name event.Name) NativeHandler {
	switch name {
	case event.PermissionChanged:
		return native(b, name, b.OnPermissionChanged)
	case event.SubscriptionChanged:
		return native(b, name, b.OnSubscriptionChanged)
	case event.UserStateChanged:
		return native(b, name, b.OnUserStateChanged)
	case event.NotificationWillDisplay:
		return native(b, name, b.OnNotificationWillDisplay)
	case event.NotificationClicked:
		return native(b, name, b.OnNotificationClicked)
	case event.InAppMessageClicked:
		return native(b, name, b.OnInAppMessageClicked)
	default:
		return native(b, name, func(st *model.InAppMessageLifecycleEvent) {
			b.OnInAppMessageLifecycle(name, st)
		})
	}
}

// native type-asserts the SDK state before calling fn. A state of the wrong
// type reaches fn as nil and degrades like a missing one.
func native[T any](b *Bridge, name event.Name, fn func(*T)) NativeHandler {
	return func(state any) {
		defer b.recoverCallback(name)

		st, ok := state.(*T)
		if !ok && state != nil {
			b.logger.Warn("NATIVE_STATE_TYPE_MISMATCH", "event", name, "type", fmt.Sprintf("%T", state))
		}
		fn(st)
	}
}
