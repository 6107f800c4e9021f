package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/webitel/push-bridge-service/config"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	"github.com/webitel/push-bridge-service/internal/domain/registry"
)

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (gRPC/WebSocket/pub-sub)
type Deliverer interface {
	Subscribe(ctx context.Context, meta model.SessionMetadata) (registry.Connector, error)
	Unsubscribe(connID uuid.UUID)
	AddListener(connID uuid.UUID, name event.Name) (bridge.ListenerID, error)
	RemoveListener(connID uuid.UUID, id bridge.ListenerID) bool
}

// Listeners is the listener registry of the bridge.
type Listeners interface {
	AddListener(name event.Name) (bridge.ListenerID, error)
	RemoveListener(id bridge.ListenerID) bool
}

var ErrUnknownSession = errors.New("service: unknown session")

type DeliveryService struct {
	registry   registry.Registrar
	listeners  Listeners
	bufferSize int

	// [SESSION_LISTENERS]
	// Listener ids owned by each session, released when the session goes away.
	mu    sync.Mutex
	owned map[uuid.UUID]map[bridge.ListenerID]struct{}
}

func NewDeliveryService(cfg *config.Config, reg registry.Registrar, listeners Listeners) *DeliveryService {
	return &DeliveryService{
		registry:   reg,
		listeners:  listeners,
		bufferSize: cfg.Session.BufferSize,
		owned:      make(map[uuid.UUID]map[bridge.ListenerID]struct{}),
	}
}

// [SUBSCRIBE] HANDLES SESSION LIFECYCLE INITIATION
func (s *DeliveryService) Subscribe(ctx context.Context, meta model.SessionMetadata) (registry.Connector, error) {
	conn := registry.NewConnector(ctx, meta, s.bufferSize)

	s.mu.Lock()
	s.owned[conn.GetID()] = make(map[bridge.ListenerID]struct{})
	s.mu.Unlock()

	if err := s.registry.Register(conn); err != nil {
		s.mu.Lock()
		delete(s.owned, conn.GetID())
		s.mu.Unlock()
		conn.Close()
		return nil, fmt.Errorf("register session: %w", err)
	}
	return conn, nil
}

// [UNSUBSCRIBE] RELEASES LISTENERS, THEN THE SESSION
func (s *DeliveryService) Unsubscribe(connID uuid.UUID) {
	s.mu.Lock()
	ids := s.owned[connID]
	delete(s.owned, connID)
	s.mu.Unlock()

	for id := range ids {
		s.listeners.RemoveListener(id)
	}
	s.registry.Unregister(connID)
}

func (s *DeliveryService) AddListener(connID uuid.UUID, name event.Name) (bridge.ListenerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.owned[connID]
	if !ok {
		return uuid.Nil, ErrUnknownSession
	}
	id, err := s.listeners.AddListener(name)
	if err != nil {
		return uuid.Nil, err
	}
	set[id] = struct{}{}
	return id, nil
}

// RemoveListener only removes ids the session owns.
func (s *DeliveryService) RemoveListener(connID uuid.UUID, id bridge.ListenerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.owned[connID]
	if !ok {
		return false
	}
	if _, ok := set[id]; !ok {
		return false
	}
	delete(set, id)
	return s.listeners.RemoveListener(id)
}
