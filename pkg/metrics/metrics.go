package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Subscribe engine metrics
	HandshakeAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavecast_handshake_attempts_total",
			Help: "Total number of subscribe handshake attempts",
		},
	)

	ReceiveAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavecast_receive_attempts_total",
			Help: "Total number of subscribe long-poll receive attempts",
		},
	)

	ReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavecast_reconnects_total",
			Help: "Total number of reconnect attempts by phase (handshake, receive)",
		},
		[]string{"phase"},
	)

	GiveUpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavecast_give_ups_total",
			Help: "Total number of retry policies that exhausted and gave up, by phase",
		},
		[]string{"phase"},
	)

	LongPollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wavecast_long_poll_duration_seconds",
			Help:    "Duration of a subscribe long-poll call in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 150, 300},
		},
	)

	MessagesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavecast_messages_received_total",
			Help: "Total number of decoded envelopes received, by message type",
		},
		[]string{"message_type"},
	)

	// Presence engine metrics
	HeartbeatsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavecast_heartbeats_sent_total",
			Help: "Total number of presence heartbeat calls sent",
		},
	)

	HeartbeatFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavecast_heartbeat_failures_total",
			Help: "Total number of presence heartbeat calls that failed",
		},
	)

	// Publish metrics
	PublishRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavecast_publish_requests_total",
			Help: "Total number of publish/signal requests by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	PublishDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wavecast_publish_duration_seconds",
			Help:    "Duration of a publish call in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Dispatcher metrics
	DispatcherQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavecast_dispatcher_queue_depth",
			Help: "Combined number of handle-level updates queued awaiting a first listener",
		},
	)

	StreamDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavecast_stream_drops_total",
			Help: "Total number of updates dropped because a listener stream's buffer was full",
		},
		[]string{"stream"},
	)

	// Access manager metrics
	GrantRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavecast_grant_requests_total",
			Help: "Total number of grant/revoke token requests by outcome",
		},
		[]string{"outcome"},
	)

	// Registered handle metrics
	ActiveHandlesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavecast_active_handles_total",
			Help: "Number of Subscription/SubscriptionSet handles currently registered",
		},
	)

	AggregateEntitiesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavecast_aggregate_entities_total",
			Help: "Number of distinct channels and channel groups in the manager's aggregate subscription input",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HandshakeAttemptsTotal,
		ReceiveAttemptsTotal,
		ReconnectsTotal,
		GiveUpsTotal,
		LongPollDuration,
		MessagesReceivedTotal,
		HeartbeatsSentTotal,
		HeartbeatFailuresTotal,
		PublishRequestsTotal,
		PublishDuration,
		DispatcherQueueDepth,
		StreamDropsTotal,
		GrantRequestsTotal,
		ActiveHandlesTotal,
		AggregateEntitiesTotal,
	)
}

// Handler returns the Prometheus HTTP handler, for applications that
// already run their own HTTP server and want to expose wavecast-go's
// metrics alongside their own.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
