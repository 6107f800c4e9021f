package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	"github.com/webitel/push-bridge-service/internal/domain/registry"
	"github.com/webitel/push-bridge-service/internal/service"
)

// Sink is a host session with no socket behind it: every event the bridge
// delivers is republished to the message bus.
type Sink struct {
	deliverer  service.Deliverer
	dispatcher EventDispatcher
	logger     *slog.Logger
	listen     []event.Name

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSink(deliverer service.Deliverer, dispatcher EventDispatcher, logger *slog.Logger, listen []event.Name) *Sink {
	return &Sink{
		deliverer:  deliverer,
		dispatcher: dispatcher,
		logger:     logger,
		listen:     listen,
	}
}

// Start registers the sink session and its listeners, then pumps events out.
func (s *Sink) Start() error {
	ctx, cancel := context.WithCancel(context.Background())

	conn, err := s.deliverer.Subscribe(ctx, model.SessionMetadata{Transport: "pubsub", Platform: "bus"})
	if err != nil {
		cancel()
		return err
	}
	for _, name := range s.listen {
		if _, err := s.deliverer.AddListener(conn.GetID(), name); err != nil {
			s.deliverer.Unsubscribe(conn.GetID())
			cancel()
			return err
		}
	}

	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.deliverer.Unsubscribe(conn.GetID())
		s.pump(ctx, conn)
	}()

	s.logger.Info("PUBSUB_SINK_STARTED", "conn_id", conn.GetID(), "listen", len(s.listen))
	return nil
}

func (s *Sink) pump(ctx context.Context, conn registry.Connector) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case ev := <-conn.Recv():
			err := s.dispatcher.Publish(ctx, ev)
			switch {
			case errors.Is(err, ErrBreakerOpen):
				s.logger.Debug("PUBSUB_SINK_SKIPPED", "event", ev.GetName(), "event_id", ev.GetID())
			case err != nil:
				s.logger.Warn("PUBSUB_SINK_PUBLISH_FAILED", "event", ev.GetName(), "event_id", ev.GetID(), "err", err)
			}
		}
	}
}

// Stop ends the pump and releases the session.
func (s *Sink) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Info("PUBSUB_SINK_STOPPED")
}
