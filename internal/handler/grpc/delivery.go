package grpc

import (
	"errors"
	"log/slog"
	"time"

	"github.com/webitel/push-bridge-service/infra/server/grpc/interceptors"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	grpcmarshaller "github.com/webitel/push-bridge-service/internal/handler/marshaller/grpc"
	"github.com/webitel/push-bridge-service/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ BridgeServer = (*DeliveryService)(nil)

var errListenNotList = errors.New("listen must be a list of event names")

type DeliveryService struct {
	logger    *slog.Logger
	deliverer service.Deliverer
}

func NewDeliveryService(logger *slog.Logger, deliverer service.Deliverer) *DeliveryService {
	return &DeliveryService{
		logger:    logger,
		deliverer: deliverer,
	}
}

// Stream manages the lifecycle of a long-lived HTTP/2 server-streaming session.
// The request carries the listener set: {"listen": ["notification-clicked", ...]}.
func (d *DeliveryService) Stream(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()

	// [IDENTITY_EXTRACTION] Session metadata is collected by the interceptor.
	meta, ok := interceptors.GetSessionMetadata(ctx)
	if !ok {
		meta = model.SessionMetadata{Transport: "grpc"}
	}

	names, err := listenSet(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	conn, err := d.deliverer.Subscribe(ctx, meta)
	if err != nil {
		d.logger.Error("STREAM_SUBSCRIBE_REJECTED", "err", err)
		return status.Error(codes.Unavailable, "bridge is not accepting sessions")
	}

	l := d.logger.With("conn_id", conn.GetID(), "platform", meta.Platform)

	// [RESOURCE_RECLAMATION]
	defer func() {
		d.deliverer.Unsubscribe(conn.GetID())
		l.Info("STREAM_CLOSED")
	}()

	for _, name := range names {
		if _, err := d.deliverer.AddListener(conn.GetID(), name); err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}

	// [HANDSHAKE_LOGIC]
	hello, err := grpcmarshaller.MarshallSystemEvent(grpcmarshaller.EventConnected, conn.GetID().String(), time.Now().UnixMilli(), &model.ConnectedPayload{
		Ok:            true,
		ConnectionID:  conn.GetID().String(),
		ServerVersion: model.ServerVersion,
		Vocabulary:    vocabulary(),
	})
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if err := stream.SendMsg(hello); err != nil {
		l.Error("STREAM_HANDSHAKE_FAILED", "err", err)
		return err
	}

	l.Info("STREAM_ESTABLISHED", "listen", len(names))

	// [EVENT_LOOP]
	for {
		select {
		case <-ctx.Done():
			// Client disconnect, deadline or keepalive failure.
			l.Info("STREAM_CLIENT_GONE", "reason", ctx.Err())
			return nil

		case <-conn.Done():
			// [TERMINATION_SENTINEL] Best effort goodbye before the status.
			bye, err := grpcmarshaller.MarshallSystemEvent(grpcmarshaller.EventDisconnected, "", time.Now().UnixMilli(), &model.DisconnectedPayload{
				Reason: "session_closed_by_server",
				Code:   "SHUTDOWN",
			})
			if err == nil {
				_ = stream.SendMsg(bye)
			}
			return status.Error(codes.Unavailable, "session_terminated_by_server")

		case ev := <-conn.Recv():
			frame, err := grpcmarshaller.MarshallDeliveryEvent(ev)
			if err != nil {
				l.Error("STREAM_MARSHAL_FAILED", "event", ev.GetName(), "err", err)
				continue
			}
			if err := stream.SendMsg(frame); err != nil {
				l.Error("STREAM_SEND_FAILED", "event_id", ev.GetID(), "err", err)
				return status.Error(codes.DataLoss, "stream_transmission_failed")
			}
			l.Debug("STREAM_EVENT_PUSHED", "event", ev.GetName())
		}
	}
}

// listenSet reads the optional "listen" list of event names.
func listenSet(req *structpb.Struct) ([]event.Name, error) {
	v, ok := req.GetFields()["listen"]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, errListenNotList
	}

	names := make([]event.Name, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		name, err := event.ParseName(item.GetStringValue())
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func vocabulary() []string {
	names := event.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}
