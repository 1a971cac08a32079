package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpwa_engine_events_total",
			Help: "Total number of inbound socket events applied, by domain router.",
		},
		[]string{"domain", "event"},
	)
	eventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpwa_engine_events_dropped_total",
			Help: "Total number of inbound events dropped (unknown reference, malformed payload).",
		},
		[]string{"domain", "reason"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpwa_engine_commands_total",
			Help: "Total number of outbound commands emitted.",
		},
		[]string{"command"},
	)
	commandsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vpwa_engine_commands_rejected_total",
			Help: "Total number of commands rejected locally while disconnected.",
		},
	)
	connectedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpwa_engine_connected",
			Help: "Whether the engine currently holds a live server connection.",
		},
	)
	backfillDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpwa_engine_backfill_duration_seconds",
			Help:    "Message backfill round-trip latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vpwa_engine_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		eventsTotal,
		eventsDroppedTotal,
		commandsTotal,
		commandsRejectedTotal,
		connectedGauge,
		backfillDuration,
		amqpPublishErrorsTotal,
	)
}

func IncEvent(domain, event string) {
	eventsTotal.WithLabelValues(domain, event).Inc()
}

func IncDropped(domain, reason string) {
	eventsDroppedTotal.WithLabelValues(domain, reason).Inc()
}

func IncCommand(command string) {
	commandsTotal.WithLabelValues(command).Inc()
}

func IncCommandRejected() {
	commandsRejectedTotal.Inc()
}

func SetConnected(connected bool) {
	if connected {
		connectedGauge.Set(1)
		return
	}
	connectedGauge.Set(0)
}

func ObserveBackfill(d time.Duration) {
	backfillDuration.Observe(d.Seconds())
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
