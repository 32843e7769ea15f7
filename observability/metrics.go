package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the chat service.
type Metrics struct {
	registry *prometheus.Registry

	ChatRequests        *prometheus.CounterVec
	PipelineInvocations *prometheus.CounterVec
	PipelineDuration    prometheus.Histogram
	PipelineBuilds      *prometheus.CounterVec
	StreamChunks        prometheus.Counter
}

// NewMetrics registers the instruments on a private registry so tests can build
// as many instances as they like.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		PipelineInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_invocations_total",
			Help:      "RAG pipeline invocations by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of a single retrieve-and-generate pass.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		PipelineBuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_builds_total",
			Help:      "Lazy pipeline build attempts by outcome.",
		}, []string{"outcome"}),
		StreamChunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Answer chunks written to streaming clients.",
		}),
	}
}

// ObservePipeline records one pipeline run.
func (m *Metrics) ObservePipeline(d time.Duration, err error) {
	m.PipelineDuration.Observe(d.Seconds())
	m.PipelineInvocations.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveBuild(err error) {
	m.PipelineBuilds.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveChat(endpoint string, err error) {
	m.ChatRequests.WithLabelValues(endpoint, outcome(err)).Inc()
}

// Handler exposes the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
