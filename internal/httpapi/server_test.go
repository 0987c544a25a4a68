package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joelkehle/venturefit/internal/assessment"
	"github.com/joelkehle/venturefit/internal/catalog"
	"github.com/joelkehle/venturefit/internal/enrichment"
	"github.com/joelkehle/venturefit/internal/observability"
	"github.com/joelkehle/venturefit/internal/report"
	"github.com/joelkehle/venturefit/internal/store"
	"github.com/joelkehle/venturefit/internal/submission"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, enrichment.Event) error { return nil }

type stubPDF struct{}

func (stubPDF) Render(context.Context, string) ([]byte, error) { return []byte("%PDF-1.4 stub"), nil }

type testServer struct {
	h   http.Handler
	svc *submission.Service
}

func newServerForTest(t *testing.T) testServer {
	t.Helper()
	now := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore(store.Config{Clock: func() time.Time { return now }})
	ctx := context.Background()
	for _, v := range []assessment.VentureProfile{
		{ID: "ops", Name: "Ops Co", IdealOperatorType: assessment.OperationalLeader, SuggestedRoles: []string{"Operations Lead"}, Active: true},
		{ID: "lab", Name: "Lab Co", IdealOperatorType: assessment.ProductArchitect, Active: true},
	} {
		if err := mem.UpsertVentureProfile(ctx, v); err != nil {
			t.Fatalf("seed venture: %v", err)
		}
	}
	reg := prometheus.NewRegistry()
	metrics := observability.MustNewMetrics(reg)
	svc := submission.New(catalog.MustDefault(), mem, submission.Options{
		Publisher: nopPublisher{},
		Metrics:   metrics,
		Clock:     func() time.Time { return now },
	})
	t.Cleanup(svc.Wait)
	h := NewServer(Deps{
		Service:  svc,
		Reports:  report.NewBuilder("", stubPDF{}),
		Health:   mem.Health,
		Gatherer: reg,
		Metrics:  metrics,
	})
	return testServer{h: h, svc: svc}
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	blob, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(blob))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return out
}

type errorBody struct {
	OK    bool `json:"ok"`
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Transient bool   `json:"transient"`
		Missing   int    `json:"missing"`
	} `json:"error"`
}

func allResponses() []map[string]any {
	qs := catalog.MustDefault().Questions()
	out := make([]map[string]any, 0, len(qs))
	for _, q := range qs {
		var v any = 4
		switch q.Type {
		case assessment.TypeForcedChoice:
			v = "A"
		case assessment.TypeScenario:
			v = 2
		}
		out = append(out, map[string]any{"questionId": q.ID, "value": v})
	}
	return out
}

func mustCreateSession(t *testing.T, h http.Handler) assessment.Session {
	t.Helper()
	rr := postJSON(t, h, "/v1/sessions", map[string]any{"applicantId": "app-1", "applicantName": "Dana"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decode[assessment.Session](t, rr)
}

func TestSessionSubmitFlow(t *testing.T) {
	ts := newServerForTest(t)
	sess := mustCreateSession(t, ts.h)
	if sess.Status != assessment.SessionPending {
		t.Fatalf("status = %s", sess.Status)
	}

	rr := postJSON(t, ts.h, "/v1/sessions/"+sess.ID+"/responses", map[string]any{"responses": allResponses()})
	if rr.Code != http.StatusOK {
		t.Fatalf("record status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, ts.h, "/v1/sessions/"+sess.ID+"/submit", map[string]any{})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status=%d body=%s", rr.Code, rr.Body.String())
	}
	out := decode[submission.Outcome](t, rr)
	if out.Result.ID == "" || out.Replayed {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(out.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(out.Matches))
	}

	rr = postJSON(t, ts.h, "/v1/sessions/"+sess.ID+"/submit", map[string]any{})
	if rr.Code != http.StatusOK {
		t.Fatalf("replay status=%d body=%s", rr.Code, rr.Body.String())
	}
	replay := decode[submission.Outcome](t, rr)
	if !replay.Replayed || replay.Result.ID != out.Result.ID {
		t.Fatalf("expected replay of %s, got %+v", out.Result.ID, replay)
	}

	rr = get(t, ts.h, "/v1/sessions/"+sess.ID)
	if got := decode[assessment.Session](t, rr); got.Status != assessment.SessionCompleted {
		t.Fatalf("session status = %s", got.Status)
	}

	rr = get(t, ts.h, "/v1/results/"+out.Result.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("get result status=%d", rr.Code)
	}
	rr = get(t, ts.h, "/v1/sessions/"+sess.ID+"/result")
	if got := decode[assessment.AssessmentResult](t, rr); got.ID != out.Result.ID {
		t.Fatalf("session result = %s", got.ID)
	}

	rr = get(t, ts.h, "/v1/results/"+out.Result.ID+"/matches")
	matches := decode[struct {
		Matches []assessment.VentureMatch `json:"matches"`
	}](t, rr)
	if len(matches.Matches) != 2 {
		t.Fatalf("expected stored matches, got %d", len(matches.Matches))
	}

	rr = get(t, ts.h, "/v1/results")
	list := decode[struct {
		Results []assessment.AssessmentResult `json:"results"`
	}](t, rr)
	if len(list.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(list.Results))
	}
}

func TestSubmitIncompleteReportsMissing(t *testing.T) {
	ts := newServerForTest(t)
	sess := mustCreateSession(t, ts.h)

	rs := allResponses()[:60]
	rr := postJSON(t, ts.h, "/v1/sessions/"+sess.ID+"/submit", map[string]any{"responses": rs})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode[errorBody](t, rr)
	if body.OK || body.Error.Code != assessment.CodeIncomplete || body.Error.Missing != 10 {
		t.Fatalf("unexpected error body: %+v", body)
	}
	if body.Error.Message != "10 responses outstanding" {
		t.Fatalf("message = %q", body.Error.Message)
	}
}

func TestErrorStatuses(t *testing.T) {
	ts := newServerForTest(t)

	rr := postJSON(t, ts.h, "/v1/sessions/nope/submit", map[string]any{})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown session status=%d", rr.Code)
	}
	if body := decode[errorBody](t, rr); body.Error.Code != assessment.CodeNotFound {
		t.Fatalf("code = %s", body.Error.Code)
	}

	rr = postJSON(t, ts.h, "/v1/sessions", map[string]any{"applicantName": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing applicant status=%d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	ts.h.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("bad json status=%d", bad.Code)
	}

	sess := mustCreateSession(t, ts.h)
	rr = postJSON(t, ts.h, "/v1/sessions/"+sess.ID+"/responses", map[string]any{
		"responses": []map[string]any{{"questionId": "q01", "value": 2.5}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("fractional value status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, ts.h, "/v1/sessions/"+sess.ID+"/submit", map[string]any{"responses": allResponses()})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status=%d", rr.Code)
	}
	rr = postJSON(t, ts.h, "/v1/sessions/"+sess.ID+"/responses", map[string]any{
		"responses": []map[string]any{{"questionId": "q01", "value": 3}},
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("record after completion status=%d", rr.Code)
	}

	rr = get(t, ts.h, "/v1/results/missing")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing result status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions", nil)
	mna := httptest.NewRecorder()
	ts.h.ServeHTTP(mna, req)
	if mna.Code != http.StatusMethodNotAllowed {
		t.Fatalf("delete status=%d", mna.Code)
	}
}

func TestScorePreview(t *testing.T) {
	ts := newServerForTest(t)
	rr := postJSON(t, ts.h, "/v1/score", map[string]any{
		"applicantName": "Dana",
		"responses":     allResponses()[:20],
		"ventures": []map[string]any{{
			"id": "inline", "name": "Inline", "idealOperatorType": "Growth Catalyst",
		}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("score status=%d body=%s", rr.Code, rr.Body.String())
	}
	out := decode[submission.Outcome](t, rr)
	if len(out.Matches) != 1 || out.Matches[0].VentureID != "inline" {
		t.Fatalf("unexpected matches: %+v", out.Matches)
	}
	if out.Result.ID != "" {
		t.Fatalf("preview must not persist")
	}

	rr = postJSON(t, ts.h, "/v1/score", map[string]any{
		"responses": allResponses()[:1],
		"ventures":  []map[string]any{{"id": "bad", "name": "Bad", "idealOperatorType": "Wizard"}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid venture status=%d", rr.Code)
	}
}

func TestReadEndpoints(t *testing.T) {
	ts := newServerForTest(t)

	rr := get(t, ts.h, "/v1/questions")
	qs := decode[struct {
		Questions []assessment.Question `json:"questions"`
	}](t, rr)
	if len(qs.Questions) != catalog.Size {
		t.Fatalf("expected %d questions, got %d", catalog.Size, len(qs.Questions))
	}

	rr = get(t, ts.h, "/v1/ventures")
	vs := decode[struct {
		Ventures []assessment.VentureProfile `json:"ventures"`
	}](t, rr)
	if len(vs.Ventures) != 2 {
		t.Fatalf("expected 2 ventures, got %d", len(vs.Ventures))
	}

	rr = get(t, ts.h, "/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status=%d", rr.Code)
	}

	rr = get(t, ts.h, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "venturefit_http_requests_total") {
		t.Fatalf("metrics missing http counter: %s", rr.Body.String())
	}
}

func TestHealthFailure(t *testing.T) {
	h := NewServer(Deps{
		Health:   func(context.Context) error { return errors.New("db locked") },
		Gatherer: prometheus.NewRegistry(),
	})
	rr := get(t, h, "/v1/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("health status=%d", rr.Code)
	}
}

func TestReportFormats(t *testing.T) {
	ts := newServerForTest(t)
	sess := mustCreateSession(t, ts.h)
	rr := postJSON(t, ts.h, "/v1/sessions/"+sess.ID+"/submit", map[string]any{"responses": allResponses()})
	out := decode[submission.Outcome](t, rr)
	base := "/v1/results/" + out.Result.ID + "/report"

	rr = get(t, ts.h, base)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("html report status=%d type=%s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "Operator Assessment: Dana") {
		t.Fatalf("html report missing title")
	}

	rr = get(t, ts.h, base+"?format=md")
	if !strings.HasPrefix(rr.Body.String(), "# Operator Assessment: Dana") {
		t.Fatalf("markdown report: %s", rr.Body.String())
	}

	rr = get(t, ts.h, base+"?format=pdf")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf report status=%d type=%s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf body = %q", rr.Body.String())
	}

	rr = get(t, ts.h, base+"?format=docx")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown format status=%d", rr.Code)
	}
}
