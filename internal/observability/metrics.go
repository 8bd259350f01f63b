package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requestsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xconn",
			Subsystem: "protocol",
			Name:      "requests_total",
			Help:      "Requests written to the server.",
		},
		[]string{"request"},
	)
	repliesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xconn",
			Subsystem: "protocol",
			Name:      "replies_total",
			Help:      "Replies read from the server.",
		},
		[]string{"matched"},
	)
	serverErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xconn",
			Subsystem: "protocol",
			Name:      "errors_total",
			Help:      "Protocol error packets read from the server.",
		},
		[]string{"code"},
	)
	eventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xconn",
			Subsystem: "protocol",
			Name:      "events_total",
			Help:      "Events read from the server.",
		},
		[]string{"event"},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xconn",
			Subsystem: "session",
			Name:      "handshakes_total",
			Help:      "Connection setup attempts by result.",
		},
		[]string{"result"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xconn",
			Subsystem: "session",
			Name:      "queued_packets",
			Help:      "Packets queued while waiting for a reply.",
		},
	)
	roundTrip = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xconn",
			Subsystem: "session",
			Name:      "round_trip_seconds",
			Help:      "Synchronous request to reply latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"request"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsSent, repliesReceived, serverErrors, eventsReceived, handshakes, queueDepth, roundTrip)
	})
}

func RecordRequest(request string) {
	RegisterMetrics()
	requestsSent.WithLabelValues(request).Inc()
}

// RecordReply counts a reply; matched is false for stale replies dropped
// because nobody was waiting on their sequence number.
func RecordReply(matched bool) {
	RegisterMetrics()
	label := "true"
	if !matched {
		label = "false"
	}
	repliesReceived.WithLabelValues(label).Inc()
}

func RecordServerError(code string) {
	RegisterMetrics()
	serverErrors.WithLabelValues(code).Inc()
}

func RecordEvent(event string) {
	RegisterMetrics()
	eventsReceived.WithLabelValues(event).Inc()
}

func RecordHandshake(result string) {
	RegisterMetrics()
	handshakes.WithLabelValues(result).Inc()
}

func SetQueueDepth(n int) {
	RegisterMetrics()
	queueDepth.Set(float64(n))
}

func RecordRoundTrip(request string, d time.Duration) {
	RegisterMetrics()
	roundTrip.WithLabelValues(request).Observe(d.Seconds())
}
