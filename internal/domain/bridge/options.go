package bridge

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Policy selects how Emit hands events to the dispatcher.
type Policy int

const (
	// PolicySync blocks the native caller until the channel has been called
	// or the send timeout has passed.
	PolicySync Policy = iota
	// PolicyAsync returns as soon as the event is queued.
	PolicyAsync
)

func (p Policy) String() string {
	switch p {
	case PolicyAsync:
		return "async"
	default:
		return "sync"
	}
}

// ParsePolicy accepts "sync" or "async", case-insensitive.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sync":
		return PolicySync, nil
	case "async":
		return PolicyAsync, nil
	default:
		return PolicySync, fmt.Errorf("unknown delivery policy %q", s)
	}
}

// Option defines a functional configuration type for the Bridge.
type Option func(*Bridge)

// WithMailboxSize sets the [BACKPRESSURE] threshold of the dispatcher mailbox.
func WithMailboxSize(size int) Option {
	return func(b *Bridge) {
		b.settings.mailboxSize = size
	}
}

func WithPolicy(p Policy) Option {
	return func(b *Bridge) {
		b.settings.policy = p
	}
}

// WithSendTimeout bounds both the wait for mailbox space and a single channel call.
func WithSendTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.settings.sendTimeout = d
		}
	}
}

// WithEagerObservers registers every native observer at construction
// instead of on the first host listener.
func WithEagerObservers() Option {
	return func(b *Bridge) {
		b.settings.eager = true
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(b *Bridge) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithDisplayParker enables host-controlled foreground display.
// Without a parker every foreground notification is displayed immediately.
func WithDisplayParker(p DisplayParker) Option {
	return func(b *Bridge) {
		b.parker = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(b *Bridge) {
		if t != nil {
			b.tracer = t
		}
	}
}
