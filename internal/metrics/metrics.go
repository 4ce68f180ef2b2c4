package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ClientRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ironmq_client_requests_total",
			Help: "Total HTTP requests sent to the queue service",
		})

	ClientRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ironmq_client_retries_total",
			Help: "Total 503 responses that triggered a backoff retry",
		})

	ClientTransportErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ironmq_client_transport_errors_total",
			Help: "Total connection-level failures (never retried)",
		})

	ClientRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ironmq_client_request_seconds",
			Help:    "Histogram of single HTTP exchange duration",
			Buckets: prometheus.DefBuckets,
		})

	MessagesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ironmq_worker_messages_processed_total",
			Help: "Total messages handled and deleted by the worker",
		})

	MessagesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ironmq_worker_messages_failed_total",
			Help: "Total messages whose handler failed and were released",
		})

	ReservedBatchSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ironmq_worker_reserved_batch_size",
			Help: "Number of messages returned by the last reservation poll",
		})
)

func Setup() {
	prometheus.MustRegister(ClientRequests)
	prometheus.MustRegister(ClientRetries)
	prometheus.MustRegister(ClientTransportErrors)
	prometheus.MustRegister(ClientRequestDuration)
	prometheus.MustRegister(MessagesProcessed)
	prometheus.MustRegister(MessagesFailed)
	prometheus.MustRegister(ReservedBatchSize)
}
