package registry

import (
	"log/slog"
	"time"
)

// Option defines a functional configuration type for the Fanout.
type Option func(*Fanout)

// WithSendTimeout bounds how long one slow session may hold a delivery
// before its [BACKPRESSURE] shedding kicks in.
func WithSendTimeout(d time.Duration) Option {
	return func(f *Fanout) {
		if d > 0 {
			f.sendTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fanout) {
		if l != nil {
			f.logger = l
		}
	}
}
