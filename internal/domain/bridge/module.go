package bridge

import (
	"context"
	"log/slog"

	"github.com/webitel/push-bridge-service/config"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	SDK      Observers
	Parker   DisplayParker `optional:"true"`
	Recorder Recorder      `optional:"true"`
}

var Module = fx.Module("bridge",
	fx.Provide(
		// [CLEAN_INJECTION] Configure the Bridge using Functional Options
		func(p Params) (*Bridge, error) {
			policy, err := ParsePolicy(p.Config.Bridge.Policy)
			if err != nil {
				return nil, err
			}

			opts := []Option{
				WithLogger(p.Logger.With("component", "bridge")),
				WithMailboxSize(p.Config.Bridge.MailboxSize),
				WithPolicy(policy),
				WithSendTimeout(p.Config.Bridge.SendTimeout),
				WithRecorder(p.Recorder),
			}
			if p.Parker != nil {
				opts = append(opts, WithDisplayParker(p.Parker))
			}
			if p.Config.Bridge.EagerObservers {
				opts = append(opts, WithEagerObservers())
			}
			return New(p.SDK, opts...), nil
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, b *Bridge) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				b.Close() // [GRACEFUL_SHUTDOWN] Stop the dispatcher and drop native observers
				return nil
			},
		})
	}),
)
