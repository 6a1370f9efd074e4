package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"raaee/internal/domain"
)

// Metrics contains all Prometheus metrics for the advisory service
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	StageDuration   *prometheus.HistogramVec
	StageFailures   *prometheus.CounterVec
	Answers         *prometheus.CounterVec
	KnowledgeHits   *prometheus.CounterVec
	DegradedQueries prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimited         prometheus.Counter
}

// NewMetrics creates all metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "raaee_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raaee_stage_failures_total",
			Help: "Total number of failed pipeline stages",
		}, []string{"stage"}),
		Answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raaee_answers_total",
			Help: "Total number of generated answers by failure kind (none on success)",
		}, []string{"failure"}),
		KnowledgeHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raaee_knowledge_lookups_total",
			Help: "Total number of knowledge base lookups by matched crop",
		}, []string{"crop"}),
		DegradedQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "raaee_degraded_queries_total",
			Help: "Total number of queries answered from the untranslated transcript",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raaee_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "raaee_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "raaee_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) RecordAnswer(kind domain.FailureKind) {
	label := string(kind)
	if kind == domain.FailureNone {
		label = "none"
	}
	m.Answers.WithLabelValues(label).Inc()
}

// RecordLookup counts a knowledge lookup; an empty crop counts as a miss.
func (m *Metrics) RecordLookup(crop string) {
	if crop == "" {
		crop = "none"
	}
	m.KnowledgeHits.WithLabelValues(crop).Inc()
}

func (m *Metrics) RecordDegraded() {
	m.DegradedQueries.Inc()
}

func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimited() {
	m.RateLimited.Inc()
}
