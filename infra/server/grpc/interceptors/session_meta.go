package interceptors

import (
	"context"

	"github.com/webitel/push-bridge-service/internal/domain/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

type contextKey string

const (
	// SessionContextKey is the key used to store/retrieve SessionMetadata from context
	SessionContextKey contextKey = "session_metadata"

	HeaderPlatform   = "x-platform"
	HeaderSDKVersion = "x-sdk-version"
)

// NewStreamSessionInterceptor collects the host description from the incoming
// headers before the stream handler runs.
func NewStreamSessionInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		meta := model.SessionMetadata{Transport: "grpc"}

		if md, ok := metadata.FromIncomingContext(ctx); ok {
			meta.Platform = first(md, HeaderPlatform)
			meta.Version = first(md, HeaderSDKVersion)
			meta.UserAgent = first(md, "user-agent")
		}
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			meta.RemoteIP = p.Addr.String()
		}

		// [STREAM_WRAPPING] Override the context of the original stream
		wrapped := &wrappedStream{
			ServerStream: ss,
			ctx:          context.WithValue(ctx, SessionContextKey, meta),
		}
		return handler(srv, wrapped)
	}
}

// wrappedStream is a thin wrapper to inject a new context into a gRPC stream.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// GetSessionMetadata is a helper to extract the host description from context safely.
func GetSessionMetadata(ctx context.Context) (model.SessionMetadata, bool) {
	meta, ok := ctx.Value(SessionContextKey).(model.SessionMetadata)
	return meta, ok
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
