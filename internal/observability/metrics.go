package observability

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "venturefit"

// Metrics holds every collector the service reports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	submissions        *prometheus.CounterVec
	scoringDuration    prometheus.Histogram
	operatorTypes      *prometheus.CounterVec
	trapLevels         *prometheus.CounterVec
	enrichmentFailures prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	rematches          *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics registers with the global registry exactly once.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// register returns the collector already registered under the same name, if
// any, and panics on any other registration error.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		submissions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "submissions_total",
			Help:      "Assessment submissions by outcome.",
		}, []string{"outcome"})),
		scoringDuration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "duration_seconds",
			Help:      "Time spent scoring and matching one submission.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		})),
		operatorTypes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "operator_types_total",
			Help:      "Primary operator types assigned to new results.",
		}, []string{"type"})),
		trapLevels: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "trap_levels_total",
			Help:      "Honesty-check levels of new results.",
		}, []string{"level"})),
		enrichmentFailures: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "failures_total",
			Help:      "Enrichment events that could not be published.",
		})),
		httpRequests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"})),
		httpDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"})),
		rematches: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "results_total",
			Help:      "Results processed by the re-match backfill.",
		}, []string{"status"})),
	}
}

func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveScoring(d time.Duration) {
	if m == nil {
		return
	}
	m.scoringDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordResult(operatorType, trapLevel string) {
	if m == nil {
		return
	}
	m.operatorTypes.WithLabelValues(operatorType).Inc()
	m.trapLevels.WithLabelValues(trapLevel).Inc()
}

func (m *Metrics) IncEnrichmentFailure() {
	if m == nil {
		return
	}
	m.enrichmentFailures.Inc()
}

func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncRematch(status string) {
	if m == nil {
		return
	}
	m.rematches.WithLabelValues(status).Inc()
}
