package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/joelkehle/venturefit/internal/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// handle registers h under pattern and instruments it with a span, request
// metrics and a debug latency log line keyed by the route pattern.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.StartSpan(r.Context(), observability.SpanHTTPRequest,
			attribute.String("http.route", pattern),
			attribute.String("http.method", r.Method),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w}
		h(rec, r.WithContext(ctx))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		latency := time.Since(start)
		s.metrics.ObserveHTTP(pattern, r.Method, strconv.Itoa(rec.status), latency)
		s.log.Debug("request",
			zap.String("route", pattern),
			zap.Int("status", rec.status),
			zap.Float64("latency_ms", float64(latency.Microseconds())/1000.0),
			zap.Int("bytes", rec.bytes),
		)
	}))
}
