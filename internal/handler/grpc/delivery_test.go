package grpc_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/push-bridge-service/config"
	"github.com/webitel/push-bridge-service/infra/server/grpc/interceptors"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	"github.com/webitel/push-bridge-service/internal/domain/registry"
	grpchandler "github.com/webitel/push-bridge-service/internal/handler/grpc"
	"github.com/webitel/push-bridge-service/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stack struct {
	bridge *bridge.Bridge
	fanout *registry.Fanout
	client *grpc.ClientConn
}

func newStack(t *testing.T) *stack {
	t.Helper()
	cfg := &config.Config{}
	cfg.Session.BufferSize = 16

	b := bridge.New(nil, bridge.WithLogger(newTestLogger()))
	t.Cleanup(b.Close)
	f := registry.NewFanout(b, registry.WithLogger(newTestLogger()))
	deliverer := service.NewDeliveryService(cfg, f, b)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.StreamInterceptor(interceptors.NewStreamSessionInterceptor()))
	grpchandler.RegisterBridgeServer(srv, grpchandler.NewDeliveryService(newTestLogger(), deliverer))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	return &stack{bridge: b, fanout: f, client: cc}
}

func (s *stack) open(t *testing.T, ctx context.Context, listen ...string) grpc.ClientStream {
	t.Helper()
	ctx = metadata.AppendToOutgoingContext(ctx, interceptors.HeaderPlatform, "android", interceptors.HeaderSDKVersion, "5.1.0")

	stream, err := s.client.NewStream(ctx, &grpchandler.BridgeServiceDesc.Streams[0], grpchandler.StreamMethodName)
	require.NoError(t, err)

	items := make([]any, len(listen))
	for i, n := range listen {
		items[i] = n
	}
	req, err := structpb.NewStruct(map[string]any{"listen": items})
	require.NoError(t, err)
	require.NoError(t, stream.SendMsg(req))
	require.NoError(t, stream.CloseSend())
	return stream
}

func recv(t *testing.T, stream grpc.ClientStream) *structpb.Struct {
	t.Helper()
	frame := new(structpb.Struct)
	require.NoError(t, stream.RecvMsg(frame))
	return frame
}

func TestStream_HandshakeAndDelivery(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := s.open(t, ctx, "notification-clicked")

	hello := recv(t, stream)
	assert.Equal(t, "connected", hello.Fields["event"].GetStringValue())
	payload := hello.Fields["payload"].GetStructValue()
	require.NotNil(t, payload)
	assert.True(t, payload.Fields["ok"].GetBoolValue())
	assert.Len(t, payload.Fields["vocabulary"].GetListValue().GetValues(), len(event.Names()))

	assert.True(t, s.bridge.IsAttached())
	assert.Equal(t, 1, s.bridge.ListenerCount(event.NotificationClicked))

	id := "n-1"
	s.bridge.OnNotificationClicked(&model.NotificationClickEvent{
		Notification: &model.Notification{NotificationID: &id},
	})

	frame := recv(t, stream)
	assert.Equal(t, "notification-clicked", frame.Fields["event"].GetStringValue())
	assert.Equal(t, "HIGH", frame.Fields["priority"].GetStringValue())
	n := frame.Fields["payload"].GetStructValue().Fields["notification"].GetStructValue()
	assert.Equal(t, "n-1", n.Fields["notificationId"].GetStringValue())
}

func TestStream_ClientCancelReleasesSession(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithCancel(context.Background())

	stream := s.open(t, ctx, "user-state-changed")
	recv(t, stream)
	require.Equal(t, 1, s.fanout.Sessions())

	cancel()

	require.Eventually(t, func() bool { return s.fanout.Sessions() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, s.bridge.IsAttached())
	assert.Zero(t, s.bridge.ListenerCount(event.UserStateChanged))
}

func TestStream_UnknownEventIsRejected(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := s.open(t, ctx, "outcome-sent")

	err := stream.RecvMsg(new(structpb.Struct))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Zero(t, s.fanout.Sessions())
}

func TestStream_ServerShutdown(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := s.open(t, ctx)
	recv(t, stream)

	s.fanout.Shutdown()

	bye := recv(t, stream)
	assert.Equal(t, "disconnected", bye.Fields["event"].GetStringValue())

	err := stream.RecvMsg(new(structpb.Struct))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
