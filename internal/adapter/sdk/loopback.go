// Package sdk is the in-process observer registry standing in for the native push SDK.
// Transports (AMQP, HTTP injection) decode native callbacks and Fire them here;
// the bridge subscribes to it exactly as it would to the platform SDK.
package sdk

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/event"
)

var ErrNilHandler = errors.New("sdk: nil handler")

var _ bridge.Observers = (*Loopback)(nil)

type Loopback struct {
	logger *slog.Logger

	mu        sync.RWMutex
	seq       uint64
	observers map[event.Name]map[uint64]bridge.NativeHandler
}

func NewLoopback(logger *slog.Logger) *Loopback {
	return &Loopback{
		logger:    logger,
		observers: make(map[event.Name]map[uint64]bridge.NativeHandler),
	}
}

// Subscribe registers h for name until the returned subscription is removed.
func (l *Loopback) Subscribe(name event.Name, h bridge.NativeHandler) (bridge.Subscription, error) {
	if !name.Valid() {
		return nil, fmt.Errorf("subscribe %q: %w", name, event.ErrUnknownName)
	}
	if h == nil {
		return nil, ErrNilHandler
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	set, ok := l.observers[name]
	if !ok {
		set = make(map[uint64]bridge.NativeHandler)
		l.observers[name] = set
	}
	set[l.seq] = h

	return &subscription{l: l, name: name, id: l.seq}, nil
}

// Fire invokes every observer of name synchronously on the caller's goroutine,
// the way the SDK calls back on its own thread. It reports how many ran.
func (l *Loopback) Fire(name event.Name, state any) int {
	l.mu.RLock()
	handlers := make([]bridge.NativeHandler, 0, len(l.observers[name]))
	for _, h := range l.observers[name] {
		handlers = append(handlers, h)
	}
	l.mu.RUnlock()

	if len(handlers) == 0 {
		l.logger.Debug("NATIVE_CALLBACK_UNOBSERVED", "event", name)
		return 0
	}

	for _, h := range handlers {
		l.invoke(name, h, state)
	}
	return len(handlers)
}

func (l *Loopback) invoke(name event.Name, h bridge.NativeHandler, state any) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("OBSERVER_PANIC", "event", name, "err", r, "stack", string(debug.Stack()))
		}
	}()
	h(state)
}

// Observing reports whether anything currently observes name.
func (l *Loopback) Observing(name event.Name) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.observers[name]) > 0
}

type subscription struct {
	l    *Loopback
	name event.Name
	id   uint64
	once sync.Once
}

func (s *subscription) Remove() {
	s.once.Do(func() {
		s.l.mu.Lock()
		defer s.l.mu.Unlock()

		set := s.l.observers[s.name]
		delete(set, s.id)
		if len(set) == 0 {
			delete(s.l.observers, s.name)
		}
	})
}
