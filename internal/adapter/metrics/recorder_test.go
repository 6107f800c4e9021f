package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/push-bridge-service/internal/adapter/metrics"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/event"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.NewRecorder(reg)

	r.Emitted(event.NotificationClicked)
	r.Emitted(event.NotificationClicked)
	r.Delivered(event.NotificationClicked, 3*time.Millisecond)
	r.Dropped(event.NotificationClicked, bridge.ReasonDetached)
	r.Listeners(event.UserStateChanged, 2)
	r.Attached(true)

	expected := `
# HELP push_bridge_bridge_events_emitted_total Native callbacks accepted by the bridge
# TYPE push_bridge_bridge_events_emitted_total counter
push_bridge_bridge_events_emitted_total{event="notification-clicked"} 2
# HELP push_bridge_bridge_events_dropped_total Events that never reached the host channel
# TYPE push_bridge_bridge_events_dropped_total counter
push_bridge_bridge_events_dropped_total{event="notification-clicked",reason="detached"} 1
# HELP push_bridge_bridge_listeners Host listeners per event
# TYPE push_bridge_bridge_listeners gauge
push_bridge_bridge_listeners{event="user-state-changed"} 2
# HELP push_bridge_bridge_attached 1 while a host channel is bound
# TYPE push_bridge_bridge_attached gauge
push_bridge_bridge_attached 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"push_bridge_bridge_events_emitted_total",
		"push_bridge_bridge_events_dropped_total",
		"push_bridge_bridge_listeners",
		"push_bridge_bridge_attached",
	))

	n, err := testutil.GatherAndCount(reg, "push_bridge_bridge_delivery_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r.Attached(false)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP push_bridge_bridge_attached 1 while a host channel is bound
# TYPE push_bridge_bridge_attached gauge
push_bridge_bridge_attached 0
`), "push_bridge_bridge_attached"))
}
