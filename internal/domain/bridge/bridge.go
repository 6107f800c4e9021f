/*
Package bridge republishes native push SDK lifecycle callbacks as named events on a
single outbound channel owned by a host runtime.

Key Architectural Concepts:
  - Two states only: Detached (initial) and Attached. Native callbacks may fire in
    either state; only the Attached state forwards them.
  - Designated goroutine: every channel call happens on one dispatcher goroutine,
    which plays the role of the host runtime's main thread and keeps per-kind FIFO.
  - Lazy observation: a native observer for a kind exists only while at least one
    host listener for that kind is registered.
  - Boundary isolation: nothing raised inside the bridge travels back into the
    native callback stack.
*/
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNilChannel = errors.New("bridge: nil channel")
	ErrClosed     = errors.New("bridge: closed")

	// ErrIncomparableChannel rejects channels Attach cannot tell apart.
	ErrIncomparableChannel = errors.New("bridge: channel type is not comparable")
)

// Channel is the outbound sink owned by the host runtime.
// Implementations must be comparable (pointer receivers) so Attach can detect re-binding.
type Channel interface {
	Send(ctx context.Context, ev event.Eventer) error
}

// NativeHandler receives the SDK's state object for one event kind.
type NativeHandler func(state any)

// Subscription is the SDK's handle for one registered observer.
type Subscription interface {
	Remove()
}

// Observers is the observer-registration capability of the native SDK.
type Observers interface {
	Subscribe(name event.Name, h NativeHandler) (Subscription, error)
}

// DisplayParker holds foreground notifications until the host decides on them.
type DisplayParker interface {
	Park(notificationID string, ctl model.DisplayControl)
	// Display releases a parked notification; false if nothing was parked under the id.
	Display(notificationID string) bool
}

// ListenerID identifies one host-side registration.
type ListenerID = uuid.UUID

type binding struct {
	ch Channel
}

type counters struct {
	listeners  atomic.Int32
	emitted    atomic.Uint64
	delivered  atomic.Uint64
	dropped    atomic.Uint64
	degraded   atomic.Uint64
	sendFailed atomic.Uint64
}

type settings struct {
	mailboxSize int
	policy      Policy
	sendTimeout time.Duration
	eager       bool
}

// Bridge implements the Detached/Attached state machine.
type Bridge struct {
	logger   *slog.Logger
	sdk      Observers
	parker   DisplayParker
	recorder Recorder
	tracer   trace.Tracer
	settings settings

	// [BINDING]
	// Read by every Emit from arbitrary goroutines; written by Attach/Detach
	// under attachMu. A nil pointer means Detached.
	binding  atomic.Pointer[binding]
	attachMu sync.Mutex

	dispatcher *dispatcher

	// [LISTENERS]
	// mu guards listeners and subs. Per-name counts live in stats so the
	// callback path can read them without the lock.
	mu        sync.Mutex
	listeners map[ListenerID]event.Name
	subs      map[event.Name]Subscription
	closed    bool

	stats     map[event.Name]*counters
	startedAt time.Time
}

// New creates a Detached bridge on top of the SDK's observer registry.
func New(sdk Observers, opts ...Option) *Bridge {
	b := &Bridge{
		logger:   slog.Default(),
		sdk:      sdk,
		recorder: nopRecorder{},
		tracer:   otel.Tracer("github.com/webitel/push-bridge-service/bridge"),
		settings: settings{
			mailboxSize: 1024,
			policy:      PolicySync,
			sendTimeout: 500 * time.Millisecond,
		},
		listeners: make(map[ListenerID]event.Name),
		subs:      make(map[event.Name]Subscription),
		stats:     make(map[event.Name]*counters),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, name := range event.Names() {
		b.stats[name] = &counters{}
	}

	b.dispatcher = newDispatcher(b.settings.mailboxSize, b.deliver)

	if b.settings.eager {
		b.mu.Lock()
		for _, name := range event.Names() {
			if err := b.observeLocked(name); err != nil {
				b.logger.Error("NATIVE_OBSERVER_FAILED", "event", name, "err", err)
			}
		}
		b.mu.Unlock()
	}
	return b
}

// Attach binds the bridge to ch. Attaching the bound channel again is a no-op;
// a different channel replaces it and pending deliveries for the old one are dropped.
func (b *Bridge) Attach(ch Channel) error {
	if ch == nil {
		return ErrNilChannel
	}
	if !reflect.TypeOf(ch).Comparable() {
		return fmt.Errorf("%w: %T", ErrIncomparableChannel, ch)
	}
	b.attachMu.Lock()
	defer b.attachMu.Unlock()

	if b.isClosed() {
		return ErrClosed
	}

	if cur := b.binding.Load(); cur != nil {
		if cur.ch == ch {
			return nil
		}
		b.logger.Info("BRIDGE_REBOUND", "channel", fmt.Sprintf("%T", ch))
	} else {
		b.logger.Info("BRIDGE_ATTACHED", "channel", fmt.Sprintf("%T", ch))
	}

	b.binding.Store(&binding{ch: ch})
	b.recorder.Attached(true)
	return nil
}

// Detach unbinds the channel. Native observers stay registered.
func (b *Bridge) Detach() {
	b.attachMu.Lock()
	defer b.attachMu.Unlock()

	if b.binding.Swap(nil) != nil {
		b.recorder.Attached(false)
		b.logger.Info("BRIDGE_DETACHED")
	}
}

func (b *Bridge) IsAttached() bool { return b.binding.Load() != nil }

// Emit forwards (name, payload) to the bound channel on the dispatcher goroutine.
// It never panics and never returns an error to the native caller. The result
// reports whether the event was accepted: under PolicySync a failed channel
// send counts as not accepted, under PolicyAsync acceptance means enqueued.
func (b *Bridge) Emit(name event.Name, p event.Payload) bool {
	return b.emit(name, p, nil)
}

// emit runs onDrop, if set, whenever the event does not reach the channel.
func (b *Bridge) emit(name event.Name, p event.Payload, onDrop func()) (accepted bool) {
	defer b.recoverCallback(name)
	defer func() {
		if !accepted && onDrop != nil {
			onDrop()
		}
	}()

	c, ok := b.stats[name]
	if !ok {
		b.logger.Error("EMIT_UNKNOWN_EVENT", "event", name)
		return false
	}
	if p == nil || p.EventName() != name {
		c.dropped.Add(1)
		b.recorder.Dropped(name, ReasonInvalid)
		b.logger.Error("EMIT_PAYLOAD_MISMATCH", "event", name, "payload", fmt.Sprintf("%T", p))
		return false
	}

	c.emitted.Add(1)
	b.recorder.Emitted(name)

	bnd := b.binding.Load()
	if bnd == nil {
		// [DROP_SILENTLY] Expected while no host is listening.
		c.dropped.Add(1)
		b.recorder.Dropped(name, ReasonDetached)
		b.logger.Debug("EVENT_DROPPED_DETACHED", "event", name)
		return false
	}

	j := job{ev: event.New(p), bnd: bnd, onDrop: onDrop}
	if b.settings.policy == PolicySync {
		j.done = make(chan struct{})
		j.ok = new(bool)
	}

	switch b.dispatcher.submit(j, b.settings.sendTimeout) {
	case submitRejected:
		c.dropped.Add(1)
		b.recorder.Dropped(name, ReasonMailboxFull)
		b.logger.Warn("EVENT_DROPPED_MAILBOX_FULL", "event", name, "event_id", j.ev.GetID())
		return false
	case submitClosed:
		// A job that made it into the mailbox may still be delivered; only a
		// job that never got in is reported here.
		if j.done != nil && isClosed(j.done) {
			onDrop = nil
			return *j.ok
		}
		c.dropped.Add(1)
		b.recorder.Dropped(name, ReasonClosed)
		b.logger.Debug("EVENT_DROPPED_CLOSED", "event", name)
		return false
	case submitDelivered:
		// The dispatcher already ran onDrop on failure.
		onDrop = nil
		return *j.ok
	case submitPending:
		b.logger.Warn("EMIT_SYNC_TIMEOUT", "event", name, "event_id", j.ev.GetID())
	}
	return true
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// deliver runs on the dispatcher goroutine only.
func (b *Bridge) deliver(j job) bool {
	name := j.ev.GetName()
	c := b.stats[name]

	if b.binding.Load() != j.bnd {
		c.dropped.Add(1)
		b.recorder.Dropped(name, ReasonRebound)
		b.logger.Debug("EVENT_DROPPED_REBOUND", "event", name, "event_id", j.ev.GetID())
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.settings.sendTimeout)
	defer cancel()

	ctx, span := b.tracer.Start(ctx, "bridge.deliver", trace.WithAttributes(
		attribute.String("event.name", string(name)),
		attribute.String("event.id", j.ev.GetID()),
	))
	defer span.End()

	start := time.Now()
	if err := safeSend(ctx, j.bnd.ch, j.ev); err != nil {
		// [FATAL_TO_CALLER] Terminal at the boundary.
		c.sendFailed.Add(1)
		b.recorder.SendFailed(name)
		span.RecordError(err)
		span.SetStatus(codes.Error, "channel send failed")
		b.logger.Error("CHANNEL_SEND_FAILED", "event", name, "event_id", j.ev.GetID(), "err", err)
		return false
	}

	c.delivered.Add(1)
	b.recorder.Delivered(name, time.Since(start))
	return true
}

func safeSend(ctx context.Context, ch Channel, ev event.Eventer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel panicked: %v", r)
		}
	}()
	return ch.Send(ctx, ev)
}

func (b *Bridge) recoverCallback(name event.Name) {
	if r := recover(); r != nil {
		b.logger.Error("PANIC_RECOVERED",
			"event", name,
			"err", r,
			"stack", string(debug.Stack()))
	}
}

func (b *Bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Stats returns a snapshot for observability surfaces.
func (b *Bridge) Stats() model.BridgeStats {
	b.mu.Lock()
	observing := make(map[event.Name]bool, len(b.subs))
	for name := range b.subs {
		observing[name] = true
	}
	b.mu.Unlock()

	st := model.BridgeStats{
		Attached:     b.IsAttached(),
		Policy:       b.settings.policy.String(),
		Uptime:       time.Since(b.startedAt),
		MailboxDepth: b.dispatcher.depth(),
		MailboxSize:  b.settings.mailboxSize,
		Events:       make(map[string]model.EventStats, len(b.stats)),
	}
	if l, ok := b.parker.(interface{ Len() int }); ok {
		st.ParkedDisplays = l.Len()
	}
	for name, c := range b.stats {
		st.Events[string(name)] = model.EventStats{
			Listeners:  int(c.listeners.Load()),
			Observing:  observing[name],
			Emitted:    c.emitted.Load(),
			Delivered:  c.delivered.Load(),
			Dropped:    c.dropped.Load(),
			Degraded:   c.degraded.Load(),
			SendFailed: c.sendFailed.Load(),
		}
	}
	return st
}

// Close detaches, stops the dispatcher and removes every native observer.
func (b *Bridge) Close() {
	b.Detach()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for name, sub := range b.subs {
		sub.Remove()
		delete(b.subs, name)
	}
	b.mu.Unlock()

	b.dispatcher.stop()
	b.logger.Info("BRIDGE_CLOSED")
}
