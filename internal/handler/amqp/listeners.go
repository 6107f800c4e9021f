package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/webitel/push-bridge-service/internal/service/dto"
)

// ErrRejected marks a callback that can never be replayed. The pipeline sends
// it to the poison queue without retrying.
var ErrRejected = errors.New("native callback rejected")

// [ON_NATIVE_CALLBACK]
// Replays a native SDK callback published by a host app into the observer registry.
// Malformed envelopes fail with ErrRejected; foreign apps are acknowledged.
func (h *NativeHandler) OnNativeCallbackV1(ctx context.Context, rk string, raw *dto.NativeCallbackV1) error {
	// Timed out by the pipeline: worth another attempt.
	if err := ctx.Err(); err != nil {
		return err
	}

	l := h.logger.With("routing_key", rk, "trace_id", TraceID(ctx))

	if err := raw.Validate(); err != nil {
		l.Warn("NATIVE_CALLBACK_INVALID", "err", err)
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}

	// [APP_FILTER] a shared exchange may carry several apps
	if h.app != "*" && raw.App != "" && raw.App != h.app {
		l.Debug("NATIVE_CALLBACK_FOREIGN_APP", "app", raw.App)
		return nil
	}

	name, err := raw.EventName(eventFromRoutingKey(rk))
	if err != nil {
		l.Warn("NATIVE_CALLBACK_UNKNOWN_EVENT", "event", raw.Event, "err", err)
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}

	observers, _, err := h.injector.FireJSON(name, raw.State)
	if err != nil {
		l.Warn("NATIVE_CALLBACK_DECODE_FAILED", "event", name, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrRejected, name, err)
	}

	l.Debug("NATIVE_CALLBACK_FIRED",
		"event", name,
		"observers", observers,
		"age_ms", raw.Age(time.Now()).Milliseconds())
	return nil
}

// eventFromRoutingKey extracts <event-name> from push_native.<app>.<event-name>.v1.
func eventFromRoutingKey(rk string) string {
	parts := strings.Split(rk, ".")
	if len(parts) != 4 {
		return ""
	}
	return parts[2]
}
