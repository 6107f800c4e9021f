/*
Package registry keeps the host sessions the bridge delivers to.

Key Architectural Concepts:
  - Single Channel: the Fanout is the one bridge.Channel; it multiplexes every event
    to all registered sessions (WebSocket, gRPC stream, pub/sub sink).
  - Lifecycle Coupling: the first session attaches the bridge and the last one
    detaches it, so native callbacks are dropped while nobody listens.
  - Backpressure: each session owns a bounded buffer; a slow session sheds its own
    low-priority events without blocking the others for longer than sendTimeout.
*/
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/event"
)

var (
	ErrNoSessions = errors.New("registry: no sessions")
	ErrNoDelivery = errors.New("registry: no session accepted the event")
)

var _ bridge.Channel = (*Fanout)(nil)

// Binder is the part of the bridge the fanout drives.
type Binder interface {
	Attach(ch bridge.Channel) error
	Detach()
}

// Registrar defines the gateway for host session management.
type Registrar interface {
	Register(conn Connector) error
	Unregister(connID uuid.UUID) bool
	Sessions() int
}

type Fanout struct {
	binder      Binder
	logger      *slog.Logger
	sendTimeout time.Duration

	// [SESSIONS]
	// RWMutex: every delivery reads, only (un)registration writes.
	mu       sync.RWMutex
	sessions map[uuid.UUID]Connector
}

func NewFanout(binder Binder, opts ...Option) *Fanout {
	f := &Fanout{
		binder:      binder,
		logger:      slog.Default(),
		sendTimeout: 500 * time.Millisecond,
		sessions:    make(map[uuid.UUID]Connector),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register adds a session. The first one attaches the bridge.
func (f *Fanout) Register(conn Connector) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions[conn.GetID()] = conn
	if len(f.sessions) == 1 {
		if err := f.binder.Attach(f); err != nil {
			delete(f.sessions, conn.GetID())
			return err
		}
	}

	meta := conn.GetMetadata()
	f.logger.Info("SESSION_REGISTERED",
		"conn_id", conn.GetID(),
		"transport", meta.Transport,
		"platform", meta.Platform,
		"sessions", len(f.sessions))
	return nil
}

// Unregister removes a session. The last one detaches the bridge.
func (f *Fanout) Unregister(connID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.sessions[connID]; !ok {
		return false
	}
	delete(f.sessions, connID)
	if len(f.sessions) == 0 {
		f.binder.Detach()
	}

	f.logger.Info("SESSION_UNREGISTERED", "conn_id", connID, "sessions", len(f.sessions))
	return true
}

func (f *Fanout) Sessions() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sessions)
}

// Send implements bridge.Channel. It fails only when no session took the event.
// Stalled sessions share one budget: the send timeout or the ctx deadline, whichever is first.
func (f *Fanout) Send(ctx context.Context, ev event.Eventer) error {
	deadline := time.Now().Add(f.sendTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.sessions) == 0 {
		return ErrNoSessions
	}

	accepted := 0
	for id, conn := range f.sessions {
		if ctx.Err() == nil && conn.Send(ev, max(time.Until(deadline), 0)) {
			accepted++
			continue
		}
		f.logger.Warn("SESSION_SEND_DROPPED",
			"conn_id", id,
			"event", ev.GetName(),
			"event_id", ev.GetID(),
			"dropped_total", conn.Dropped())
	}

	if accepted == 0 {
		if err := ctx.Err(); err != nil {
			return errors.Join(ErrNoDelivery, err)
		}
		return ErrNoDelivery
	}
	return nil
}

// Shutdown closes every session and detaches the bridge.
func (f *Fanout) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, conn := range f.sessions {
		conn.Close()
		delete(f.sessions, id)
	}
	f.binder.Detach()
	f.logger.Info("FANOUT_SHUTDOWN")
}
