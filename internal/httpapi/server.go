// Package httpapi exposes the submission service as a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joelkehle/venturefit/internal/assessment"
	"github.com/joelkehle/venturefit/internal/logger"
	"github.com/joelkehle/venturefit/internal/observability"
	"github.com/joelkehle/venturefit/internal/report"
	"github.com/joelkehle/venturefit/internal/store"
	"github.com/joelkehle/venturefit/internal/submission"
)

const maxBodyBytes = 1 << 20

type Deps struct {
	Service  *submission.Service
	Reports  *report.Builder
	Health   func(ctx context.Context) error
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
	Tracer   *observability.TracerProvider
	Metrics  *observability.Metrics
}

type Server struct {
	svc     *submission.Service
	reports *report.Builder
	health  func(ctx context.Context) error
	log     *zap.Logger
	tracer  *observability.TracerProvider
	metrics *observability.Metrics
}

func NewServer(d Deps) http.Handler {
	s := &Server{
		svc:     d.Service,
		reports: d.Reports,
		health:  d.Health,
		log:     logger.OrNop(d.Logger).Named("http"),
		tracer:  d.Tracer,
		metrics: d.Metrics,
	}
	if s.reports == nil {
		s.reports = report.NewBuilder("", nil)
	}
	mux := http.NewServeMux()
	s.handle(mux, "POST /v1/sessions", s.handleCreateSession)
	s.handle(mux, "GET /v1/sessions/{id}", s.handleGetSession)
	s.handle(mux, "POST /v1/sessions/{id}/responses", s.handleRecordResponses)
	s.handle(mux, "POST /v1/sessions/{id}/submit", s.handleSubmit)
	s.handle(mux, "GET /v1/sessions/{id}/result", s.handleSessionResult)
	s.handle(mux, "GET /v1/results", s.handleListResults)
	s.handle(mux, "GET /v1/results/{id}", s.handleGetResult)
	s.handle(mux, "GET /v1/results/{id}/matches", s.handleMatches)
	s.handle(mux, "GET /v1/results/{id}/report", s.handleReport)
	s.handle(mux, "POST /v1/score", s.handleScore)
	s.handle(mux, "GET /v1/questions", s.handleQuestions)
	s.handle(mux, "GET /v1/ventures", s.handleVentures)
	s.handle(mux, "GET /v1/health", s.handleHealth)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var ae *assessment.Error
	if errors.As(err, &ae) {
		body := map[string]any{
			"code":      ae.Code,
			"message":   ae.Message,
			"transient": ae.Transient,
		}
		if ae.Code == assessment.CodeIncomplete {
			body["missing"] = ae.Missing
		}
		writeJSON(w, ae.Status, map[string]any{"ok": false, "error": body})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":      assessment.CodeInternal,
			"message":   err.Error(),
			"transient": true,
		},
	})
}

// decodeBody decodes a JSON request body into dst. An empty body leaves dst
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return assessment.NewValidationError("read body: %v", err)
	}
	if len(strings.TrimSpace(string(blob))) == 0 {
		return nil
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return assessment.NewValidationError("invalid JSON: %v", err)
	}
	return nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ApplicantID   string `json:"applicantId"`
		ApplicantName string `json:"applicantName"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.svc.StartSession(r.Context(), req.ApplicantID, req.ApplicantName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type responsesRequest struct {
	Responses []assessment.Response `json:"responses"`
}

func (s *Server) handleRecordResponses(w http.ResponseWriter, r *http.Request) {
	var req responsesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.RecordResponses(r.Context(), r.PathValue("id"), req.Responses); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "recorded": len(req.Responses)})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req responsesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.svc.Submit(r.Context(), r.PathValue("id"), req.Responses)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if out.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}

func (s *Server) handleSessionResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ResultForSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	rs, err := s.svc.Results(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": rs})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	ms, err := s.svc.Matches(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": ms})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	res, err := s.svc.Result(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	ms, err := s.svc.Matches(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	doc := report.Document{Result: res, Matches: ms}

	switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
	case "", "html":
		out, err := s.reports.HTML(doc)
		if err != nil {
			writeError(w, assessment.NewInternalError(err.Error()))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, out)
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, report.Markdown(doc))
	case "pdf":
		out, err := s.reports.PDF(ctx, doc)
		if err != nil {
			s.log.Error("pdf render failed", zap.String("result_id", id), zap.Error(err))
			writeError(w, assessment.NewInternalError(err.Error()))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="assessment-`+id+`.pdf"`)
		_, _ = w.Write(out)
	default:
		writeError(w, assessment.NewValidationError("unsupported report format %q", format))
	}
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ApplicantName string                      `json:"applicantName"`
		Responses     []assessment.Response       `json:"responses"`
		Ventures      []assessment.VentureProfile `json:"ventures"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	for _, v := range req.Ventures {
		if err := store.ValidateVenture(v); err != nil {
			writeError(w, assessment.NewValidationError("%v", err))
			return
		}
	}
	out, err := s.svc.Preview(r.Context(), req.ApplicantName, req.Responses, req.Ventures)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := s.svc.Questions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (s *Server) handleVentures(w http.ResponseWriter, r *http.Request) {
	vs, err := s.svc.Ventures(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ventures": vs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
