package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/webitel/push-bridge-service/internal/domain/event"
)

var ErrMissingState = errors.New("dto: native callback without state")

// [RABBIT_V1] THE ENVELOPE PUBLISHED BY SDK HOSTS FOR EVERY NATIVE CALLBACK
type NativeCallbackV1 struct {
	App        string          `json:"app"`
	Event      string          `json:"event"`
	OccurredAt string          `json:"occurred_at"`
	State      json.RawMessage `json:"state"`
}

// EventName resolves the envelope's event, falling back to the routing key segment.
func (d *NativeCallbackV1) EventName(fallback string) (event.Name, error) {
	raw := d.Event
	if raw == "" {
		raw = fallback
	}
	name, err := event.ParseName(raw)
	if err != nil {
		return "", fmt.Errorf("native callback: %w", err)
	}
	return name, nil
}

func (d *NativeCallbackV1) Validate() error {
	if len(d.State) == 0 || string(d.State) == "null" {
		return ErrMissingState
	}
	return nil
}

// Age reports how long the callback travelled. Zero when occurred_at is absent or invalid.
func (d *NativeCallbackV1) Age(now time.Time) time.Duration {
	t, err := time.Parse(time.RFC3339Nano, d.OccurredAt)
	if err != nil {
		return 0
	}
	return now.Sub(t)
}
