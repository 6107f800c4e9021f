package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName      = "pushbridge.v1.Bridge"
	StreamMethodName = "/" + ServiceName + "/Stream"
)

// BridgeServer is the server API for the pushbridge.v1.Bridge service.
// Frames are schemaless (google.protobuf.Struct) so the event vocabulary can
// grow without a proto change.
type BridgeServer interface {
	Stream(req *structpb.Struct, stream grpc.ServerStream) error
}

// BridgeServiceDesc describes a single server-streaming method:
// one request with the listener set, then a frame per bridged event.
var BridgeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BridgeServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       bridgeStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "pushbridge/v1/bridge.proto",
}

func RegisterBridgeServer(s grpc.ServiceRegistrar, srv BridgeServer) {
	s.RegisterService(&BridgeServiceDesc, srv)
}

func bridgeStreamHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(BridgeServer).Stream(req, stream)
}
