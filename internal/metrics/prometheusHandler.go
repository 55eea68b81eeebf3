package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var pipelineMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_messages_total",
	Help: "Queue messages handled, labelled by stage and outcome (ack, parse, processing, publish)",
}, []string{"stage", "outcome"})

var documentsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "documents_ingested_total",
	Help: "Uploads handled by the ingestor, labelled by final status",
}, []string{"status"})

var brokerReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "broker_reconnects_total",
	Help: "Broker connection attempts that failed and were retried",
}, []string{"stage"})

var indexEntries = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "index_entries",
	Help: "Number of vectors in the loaded or written index",
})

var indexLoaded = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "index_loaded",
	Help: "1 when the QA service has a usable index, 0 when degraded",
})

var messageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "pipeline_message_duration_seconds",
	Help:    "Time spent handling one queue message.",
	Buckets: []float64{.05, .1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"stage"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func CountMessage(stage string, outcome string) {
	pipelineMessagesTotal.WithLabelValues(stage, outcome).Inc()
}

func CountIngestion(status string) {
	documentsIngestedTotal.WithLabelValues(status).Inc()
}

func CountReconnect(stage string) {
	brokerReconnectsTotal.WithLabelValues(stage).Inc()
}

func SetIndexEntries(n int) {
	indexEntries.Set(float64(n))
}

func SetIndexLoaded(loaded bool) {
	if loaded {
		indexLoaded.Set(1)
		return
	}
	indexLoaded.Set(0)
}

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureMessageMetrics(stage string, timeElapsed time.Duration) {
	messageDuration.WithLabelValues(stage).Observe(timeElapsed.Seconds())
}
