package sdk

import (
	"log/slog"

	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"go.uber.org/fx"
)

var Module = fx.Module("sdk",
	fx.Provide(
		func(l *slog.Logger) *Loopback {
			return NewLoopback(l.With("component", "sdk"))
		},
		// The bridge observes whatever SDK sits behind this interface.
		func(l *Loopback) bridge.Observers { return l },
	),
)
