package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewMetrics(reg)
	second := MustNewMetrics(reg)

	first.IncSubmission("created")
	second.IncSubmission("created")

	if got := testutil.ToFloat64(first.submissions.WithLabelValues("created")); got != 2 {
		t.Fatalf("expected shared counter at 2, got %v", got)
	}
}

func TestMetricsRecordResult(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())
	m.RecordResult("Operator Leader", "Strong")
	m.RecordResult("Operator Leader", "Emerging")
	m.ObserveScoring(3 * time.Millisecond)
	m.ObserveHTTP("GET /v1/health", "GET", "200", time.Millisecond)
	m.IncRematch("ok")
	m.IncEnrichmentFailure()

	if got := testutil.ToFloat64(m.operatorTypes.WithLabelValues("Operator Leader")); got != 2 {
		t.Fatalf("operator type count = %v", got)
	}
	if got := testutil.ToFloat64(m.trapLevels.WithLabelValues("Strong")); got != 1 {
		t.Fatalf("trap level count = %v", got)
	}
	if got := testutil.ToFloat64(m.enrichmentFailures); got != 1 {
		t.Fatalf("enrichment failures = %v", got)
	}
	if got := testutil.CollectAndCount(m.httpDuration); got != 1 {
		t.Fatalf("expected one http histogram series, got %d", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncSubmission("created")
	m.ObserveScoring(time.Second)
	m.RecordResult("x", "y")
	m.IncEnrichmentFailure()
	m.ObserveHTTP("r", "GET", "200", time.Second)
	m.IncRematch("ok")
}

func TestDisabledTracingIsNoop(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatalf("new tracer: %v", err)
	}
	_, span := tp.StartSpan(context.Background(), SpanScore, SessionAttrs("s1")...)
	if span.SpanContext().IsValid() {
		t.Fatalf("expected noop span")
	}
	span.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	var nilTP *TracerProvider
	_, span = nilTP.StartSpan(context.Background(), SpanMatch)
	span.End()
}
