package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	"github.com/webitel/push-bridge-service/internal/domain/registry"
)

// DeliveryMiddleware implements [DECORATOR_PATTERN] to add observability
// to session and listener management without touching business logic.
type DeliveryMiddleware struct {
	Next   Deliverer
	Logger *slog.Logger
}

func NewDeliveryMiddleware(next Deliverer, logger *slog.Logger) Deliverer {
	return &DeliveryMiddleware{
		Next:   next,
		Logger: logger,
	}
}

func (m *DeliveryMiddleware) Subscribe(ctx context.Context, meta model.SessionMetadata) (registry.Connector, error) {
	conn, err := m.Next.Subscribe(ctx, meta)
	if err != nil {
		m.Logger.Error("SESSION_SUBSCRIBE_FAILED",
			"transport", meta.Transport,
			"remote_ip", meta.RemoteIP,
			"err", err)
		return nil, err
	}

	m.Logger.Info("SESSION_SUBSCRIBED",
		"conn_id", conn.GetID(),
		"transport", meta.Transport,
		"platform", meta.Platform,
		"version", meta.Version,
		"remote_ip", meta.RemoteIP)
	return conn, nil
}

func (m *DeliveryMiddleware) Unsubscribe(connID uuid.UUID) {
	m.Next.Unsubscribe(connID)
	m.Logger.Info("SESSION_UNSUBSCRIBED", "conn_id", connID)
}

func (m *DeliveryMiddleware) AddListener(connID uuid.UUID, name event.Name) (bridge.ListenerID, error) {
	id, err := m.Next.AddListener(connID, name)
	if err != nil {
		m.Logger.Warn("LISTENER_REJECTED", "conn_id", connID, "event", name, "err", err)
		return id, err
	}
	m.Logger.Debug("LISTENER_ACCEPTED", "conn_id", connID, "event", name, "listener_id", id)
	return id, nil
}

func (m *DeliveryMiddleware) RemoveListener(connID uuid.UUID, id bridge.ListenerID) bool {
	ok := m.Next.RemoveListener(connID, id)
	if !ok {
		m.Logger.Debug("LISTENER_REMOVE_MISS", "conn_id", connID, "listener_id", id)
	}
	return ok
}
