package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// transfers, deposits and payouts by terminal status
	MovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_movements_total",
			Help: "Money movements by kind and resulting status",
		},
		[]string{"kind", "status"}, // transfer|deposit|payout, COMPLETED|FAILED|PROCESSING|PAID
	)

	GuardRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_rejections_total",
			Help: "Requests rejected before any business work",
		},
		[]string{"reason"}, // rate_limited|duplicate_request
	)

	AuditEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit events handed to the publisher",
		},
		[]string{"result"},
	)
	AuditPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_publish_failures_total",
			Help: "Audit events that could not be published or were dropped",
		},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification events by outcome",
		},
		[]string{"outcome"}, // published|publish_failed|sent|duplicate|failed
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(MovementsTotal)
		prometheus.MustRegister(GuardRejections)
		prometheus.MustRegister(AuditEvents)
		prometheus.MustRegister(AuditPublishFailures)
		prometheus.MustRegister(Notifications)
		prometheus.MustRegister(WorkerQueueDepth)
		prometheus.MustRegister(HTTPLatency)
	})
}
