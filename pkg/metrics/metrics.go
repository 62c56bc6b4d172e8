package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Notification delivery metrics
	DeliveryAttempts *prometheus.CounterVec
	DeliveryLatency  *prometheus.HistogramVec
	WhatsAppDecision *prometheus.CounterVec

	// Session sweep metrics
	SessionsExpired prometheus.Counter
	SweepRuns       prometheus.Counter
	SweepLatency    prometheus.Histogram

	// Queue metrics
	TicketsIssued *prometheus.CounterVec
	QueueDepth    *prometheus.GaugeVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		DeliveryAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_delivery_attempts_total",
			Help:      "Delivery attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		DeliveryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_delivery_duration_seconds",
			Help:      "Time spent attempting delivery per channel",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"channel"}),
		WhatsAppDecision: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whatsapp_decisions_total",
			Help:      "Messaging-channel decisions by outcome and reason",
		}, []string{"decision", "reason"}),

		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whatsapp_sessions_expired_total",
			Help:      "Sessions deactivated by the expiry sweep",
		}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_sweep_runs_total",
			Help:      "Number of expiry sweep executions",
		}),
		SweepLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_sweep_duration_seconds",
			Help:      "Time spent per expiry sweep",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		TicketsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_issued_total",
			Help:      "Tickets issued per department",
		}, []string{"department"}),
		QueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Waiting tickets per department",
		}, []string{"department"}),
	}
}
