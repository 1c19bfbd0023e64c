package sync

import "github.com/prometheus/client_golang/prometheus"

const (
	resultDelivered = "delivered"
	resultMalformed = "malformed"
	resultIgnored   = "ignored"
)

type metrics struct {
	attempts     prometheus.Counter
	reconnects   prometheus.Counter
	events       *prometheus.CounterVec
	dialDuration prometheus.Histogram
}

// newMetrics builds the listener's collectors and registers them with reg
// when it is non-nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readonme_stream_connection_attempts_total",
			Help: "Number of notification stream dials",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readonme_stream_reconnects_scheduled_total",
			Help: "Number of reconnect timers scheduled after a stream failure",
		}),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readonme_stream_events_total",
				Help: "Stream events received, by outcome",
			},
			[]string{"result"},
		),
		dialDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "readonme_stream_dial_duration_seconds",
			Help:    "Time taken to open the notification stream",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.reconnects, m.events, m.dialDuration)
	}
	return m
}
