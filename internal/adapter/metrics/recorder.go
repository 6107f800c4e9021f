package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/event"
)

const namespace = "push_bridge"

var _ bridge.Recorder = (*Recorder)(nil)

// Recorder exports bridge activity as Prometheus series.
type Recorder struct {
	emitted    *prometheus.CounterVec
	delivered  *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	degraded   *prometheus.CounterVec
	sendFailed *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	listeners  *prometheus.GaugeVec
	attached   prometheus.Gauge
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "events_emitted_total",
			Help:      "Native callbacks accepted by the bridge",
		}, []string{"event"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "events_delivered_total",
			Help:      "Events handed to the host channel",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "events_dropped_total",
			Help:      "Events that never reached the host channel",
		}, []string{"event", "reason"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "native_state_degraded_total",
			Help:      "Native state objects with missing required fields",
		}, []string{"event"}),
		sendFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "channel_send_failed_total",
			Help:      "Host channel calls that returned an error",
		}, []string{"event"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of a single host channel call",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"event"}),
		listeners: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "listeners",
			Help:      "Host listeners per event",
		}, []string{"event"}),
		attached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "attached",
			Help:      "1 while a host channel is bound",
		}),
	}

	reg.MustRegister(r.emitted, r.delivered, r.dropped, r.degraded, r.sendFailed, r.latency, r.listeners, r.attached)
	return r
}

func (r *Recorder) Emitted(name event.Name) { r.emitted.WithLabelValues(string(name)).Inc() }

func (r *Recorder) Delivered(name event.Name, took time.Duration) {
	r.delivered.WithLabelValues(string(name)).Inc()
	r.latency.WithLabelValues(string(name)).Observe(took.Seconds())
}

func (r *Recorder) Dropped(name event.Name, reason bridge.DropReason) {
	r.dropped.WithLabelValues(string(name), string(reason)).Inc()
}

func (r *Recorder) Degraded(name event.Name)   { r.degraded.WithLabelValues(string(name)).Inc() }
func (r *Recorder) SendFailed(name event.Name) { r.sendFailed.WithLabelValues(string(name)).Inc() }

func (r *Recorder) Listeners(name event.Name, n int) {
	r.listeners.WithLabelValues(string(name)).Set(float64(n))
}

func (r *Recorder) Attached(attached bool) {
	if attached {
		r.attached.Set(1)
		return
	}
	r.attached.Set(0)
}
