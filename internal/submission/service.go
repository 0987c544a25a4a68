// Package submission runs the assessment lifecycle: sessions collect
// responses, a submit scores them once, matches the result against the active
// ventures and asks for enrichment.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/joelkehle/venturefit/internal/assessment"
	"github.com/joelkehle/venturefit/internal/catalog"
	"github.com/joelkehle/venturefit/internal/enrichment"
	"github.com/joelkehle/venturefit/internal/logger"
	"github.com/joelkehle/venturefit/internal/matching"
	"github.com/joelkehle/venturefit/internal/observability"
	"github.com/joelkehle/venturefit/internal/scoring"
)

const defaultEnrichTimeout = 30 * time.Second

// Submission outcomes reported to metrics.
const (
	OutcomeCreated    = "created"
	OutcomeReplayed   = "replayed"
	OutcomeIncomplete = "incomplete"
	OutcomeInvalid    = "invalid"
	OutcomeFailed     = "failed"
)

type Options struct {
	Logger        *zap.Logger
	Tracer        *observability.TracerProvider
	Metrics       *observability.Metrics
	Publisher     enrichment.Publisher
	VentureTTL    time.Duration
	CacheSize     int
	EnrichTimeout time.Duration
	Clock         func() time.Time
}

// Outcome is what a submit returns. Replayed is set when the session had
// already been completed and the stored result came back unchanged.
type Outcome struct {
	Result   assessment.AssessmentResult `json:"result"`
	Matches  []assessment.VentureMatch   `json:"matches"`
	Replayed bool                        `json:"replayed"`
}

type Service struct {
	catalog   QuestionCatalog
	sessions  SessionStore
	responses ResponseStore
	results   AssessmentResultStore
	matches   VentureMatchStore
	ventures  *CachedVentureProfiles

	log           *zap.Logger
	tracer        *observability.TracerProvider
	metrics       *observability.Metrics
	publisher     enrichment.Publisher
	enrichTimeout time.Duration
	clock         func() time.Time

	inflight singleflight.Group
	pending  sync.WaitGroup
}

func New(cat QuestionCatalog, st Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = defaultEnrichTimeout
	}
	log := logger.OrNop(opts.Logger).Named("submission")
	pub := opts.Publisher
	if pub == nil {
		pub = enrichment.LogPublisher{Logger: log}
	}
	return &Service{
		catalog:       cat,
		sessions:      st,
		responses:     st,
		results:       st,
		matches:       st,
		ventures:      NewCachedVentureProfiles(st, opts.CacheSize, opts.VentureTTL, opts.Clock),
		log:           log,
		tracer:        opts.Tracer,
		metrics:       opts.Metrics,
		publisher:     pub,
		enrichTimeout: opts.EnrichTimeout,
		clock:         opts.Clock,
	}
}

// Wait blocks until every enrichment dispatch has finished.
func (s *Service) Wait() { s.pending.Wait() }

// InvalidateVentures forces the next match to reload venture profiles.
func (s *Service) InvalidateVentures() { s.ventures.Invalidate() }

func (s *Service) StartSession(ctx context.Context, applicantID, applicantName string) (assessment.Session, error) {
	applicantID = strings.TrimSpace(applicantID)
	if applicantID == "" {
		return assessment.Session{}, assessment.NewValidationError("applicantId is required")
	}
	sess, err := s.sessions.CreateSession(ctx, assessment.Session{
		ApplicantID:   applicantID,
		ApplicantName: strings.TrimSpace(applicantName),
		Status:        assessment.SessionPending,
	})
	if err != nil {
		return assessment.Session{}, assessment.NewPersistenceError("create session", err)
	}
	s.log.Debug("session started", zap.String("session_id", sess.ID))
	return sess, nil
}

func (s *Service) Session(ctx context.Context, id string) (assessment.Session, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return assessment.Session{}, lookupError(err, "session %s not found", id)
	}
	return sess, nil
}

func (s *Service) RecordResponse(ctx context.Context, sessionID string, r assessment.Response) error {
	return s.RecordResponses(ctx, sessionID, []assessment.Response{r})
}

// RecordResponses validates and stores answers for an open session. Later
// answers to the same question overwrite earlier ones.
func (s *Service) RecordResponses(ctx context.Context, sessionID string, rs []assessment.Response) error {
	if len(rs) == 0 {
		return assessment.NewValidationError("at least one response is required")
	}
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status == assessment.SessionCompleted {
		return assessment.NewConflictError("session %s is already completed", sessionID)
	}
	questions, err := s.questions(ctx)
	if err != nil {
		return err
	}
	byID := indexQuestions(questions)
	for _, r := range rs {
		if err := checkResponse(byID, r); err != nil {
			return err
		}
	}
	if err := s.responses.PutResponses(ctx, sessionID, rs); err != nil {
		if errors.Is(err, assessment.ErrSessionCompleted) {
			return assessment.NewConflictError("session %s is already completed", sessionID)
		}
		return assessment.NewPersistenceError("store responses", err)
	}
	if err := s.sessions.MarkStarted(ctx, sessionID); err != nil {
		return assessment.NewPersistenceError("mark session started", err)
	}
	return nil
}

// Submit scores a session. Submitted responses are stored over any recorded
// earlier and the full stored set is scored.
// Submitting a completed session returns its stored result. Concurrent calls
// for one session share a single run, which is not cancelled when the caller
// that started it goes away.
func (s *Service) Submit(ctx context.Context, sessionID string, responses []assessment.Response) (Outcome, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanSubmit, observability.SessionAttrs(sessionID)...)
	defer span.End()

	runCtx := context.WithoutCancel(ctx)
	v, err, shared := s.inflight.Do(sessionID, func() (any, error) {
		return s.submit(runCtx, sessionID, responses)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	out := v.(Outcome)
	if shared {
		out.Matches = append([]assessment.VentureMatch(nil), out.Matches...)
	}
	span.SetAttributes(
		attribute.String(observability.AttrResultID, out.Result.ID),
		attribute.Bool(observability.AttrIdempotent, out.Replayed),
	)
	return out, nil
}

func (s *Service) submit(ctx context.Context, sessionID string, responses []assessment.Response) (Outcome, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		s.metrics.IncSubmission(OutcomeInvalid)
		return Outcome{}, err
	}
	if sess.Status == assessment.SessionCompleted {
		return s.replay(ctx, sessionID)
	}

	questions, err := s.questions(ctx)
	if err != nil {
		s.metrics.IncSubmission(OutcomeFailed)
		return Outcome{}, err
	}
	// Submitted answers are merged over the ones recorded earlier.
	if len(responses) > 0 {
		if err := checkSubmitted(questions, responses); err != nil {
			s.metrics.IncSubmission(OutcomeInvalid)
			return Outcome{}, err
		}
		if err := s.responses.PutResponses(ctx, sessionID, responses); err != nil {
			if errors.Is(err, assessment.ErrSessionCompleted) {
				return s.replay(ctx, sessionID)
			}
			s.metrics.IncSubmission(OutcomeFailed)
			return Outcome{}, assessment.NewPersistenceError("store responses", err)
		}
	}
	responses, err = s.responses.GetAllForSession(ctx, sessionID)
	if err != nil {
		s.metrics.IncSubmission(OutcomeFailed)
		return Outcome{}, assessment.NewPersistenceError("load responses", err)
	}
	if missing := countMissing(questions, responses); missing > 0 {
		s.metrics.IncSubmission(OutcomeIncomplete)
		s.log.Info("submission incomplete", zap.String("session_id", sessionID), zap.Int("missing", missing))
		return Outcome{}, assessment.NewIncompleteError(missing)
	}

	out, err := s.complete(ctx, sess, questions, responses)
	if err != nil {
		s.metrics.IncSubmission(OutcomeFailed)
		s.log.Error("submission failed", zap.String("session_id", sessionID), zap.Error(err))
		return Outcome{}, err
	}
	if out.Replayed {
		// Another run completed the session first and owns the enrichment.
		s.metrics.IncSubmission(OutcomeReplayed)
		s.log.Info("submission completed elsewhere", zap.String("session_id", sessionID), zap.String("result_id", out.Result.ID))
		return out, nil
	}
	s.metrics.IncSubmission(OutcomeCreated)
	s.log.Info("submission completed",
		zap.String("session_id", sessionID),
		zap.String("result_id", out.Result.ID),
		zap.String("primary_type", string(out.Result.PrimaryOperatorType)),
		zap.Int("matches", len(out.Matches)),
	)
	s.dispatchEnrichment(out.Result, out.Matches)
	return out, nil
}

// complete persists the result before the matches and only then marks the
// session completed. A failure part way leaves the session open, and a retry
// finds the stored result and finishes the remaining steps. The outcome is a
// replay when the session was already completed by the time this run marked it.
func (s *Service) complete(ctx context.Context, sess assessment.Session, questions []assessment.Question, responses []assessment.Response) (Outcome, error) {
	started := s.clock()
	_, scoreSpan := s.tracer.StartSpan(ctx, observability.SpanScore, observability.SessionAttrs(sess.ID)...)
	result := scoring.Score(questions, responses, sess.ApplicantName)
	scoreSpan.SetAttributes(attribute.String(observability.AttrOperatorType, string(result.PrimaryOperatorType)))
	scoreSpan.End()

	persistCtx, persistSpan := s.tracer.StartSpan(ctx, observability.SpanPersist, observability.SessionAttrs(sess.ID)...)
	stored, created, err := s.results.UpsertBySession(persistCtx, sess.ID, result)
	persistSpan.End()
	if err != nil {
		return Outcome{}, assessment.NewPersistenceError("store result", err)
	}
	if created {
		s.metrics.RecordResult(string(stored.PrimaryOperatorType), string(stored.TrapAnalysis.Level))
	} else {
		s.log.Info("resuming partially stored submission", zap.String("session_id", sess.ID), zap.String("result_id", stored.ID))
	}

	matches, err := s.Rematch(ctx, stored)
	if err != nil {
		return Outcome{}, err
	}
	s.metrics.ObserveScoring(s.clock().Sub(started))

	transitioned, err := s.sessions.MarkCompleted(ctx, sess.ID)
	if err != nil {
		return Outcome{}, assessment.NewPersistenceError("mark session completed", err)
	}
	return Outcome{Result: stored, Matches: matches, Replayed: !transitioned}, nil
}

// Rematch recomputes and replaces the venture matches of a stored result
// against the current active ventures.
func (s *Service) Rematch(ctx context.Context, result assessment.AssessmentResult) ([]assessment.VentureMatch, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanMatch, attribute.String(observability.AttrResultID, result.ID))
	defer span.End()

	ventures, err := s.ventures.ListActiveVentures(ctx)
	if err != nil {
		return nil, assessment.NewPersistenceError("load ventures", err)
	}
	matches := matching.Match(result, ventures)
	span.SetAttributes(attribute.Int(observability.AttrVentureCount, len(ventures)))
	if err := s.matches.ReplaceAllForResult(ctx, result.ID, matches); err != nil {
		return nil, assessment.NewPersistenceError("replace matches", err)
	}
	stored, err := s.matches.ListForResult(ctx, result.ID)
	if err != nil {
		return nil, assessment.NewPersistenceError("load matches", err)
	}
	return stored, nil
}

func (s *Service) replay(ctx context.Context, sessionID string) (Outcome, error) {
	result, err := s.results.GetBySession(ctx, sessionID)
	if err != nil {
		s.metrics.IncSubmission(OutcomeFailed)
		if errors.Is(err, assessment.ErrNotFound) {
			return Outcome{}, assessment.NewInternalError(fmt.Sprintf("session %s is completed but has no result", sessionID))
		}
		return Outcome{}, assessment.NewPersistenceError("load result", err)
	}
	matches, err := s.matches.ListForResult(ctx, result.ID)
	if err != nil {
		s.metrics.IncSubmission(OutcomeFailed)
		return Outcome{}, assessment.NewPersistenceError("load matches", err)
	}
	s.metrics.IncSubmission(OutcomeReplayed)
	s.log.Info("submission replayed", zap.String("session_id", sessionID), zap.String("result_id", result.ID))
	return Outcome{Result: result, Matches: matches, Replayed: true}, nil
}

// dispatchEnrichment publishes in the background. Failures are logged and
// counted, never returned.
func (s *Service) dispatchEnrichment(result assessment.AssessmentResult, matches []assessment.VentureMatch) {
	ev := enrichment.NewEvent(result, matches)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.enrichTimeout)
		defer cancel()
		ctx, span := s.tracer.StartSpan(ctx, observability.SpanEnrich, attribute.String(observability.AttrResultID, ev.ResultID))
		defer span.End()
		if err := s.publisher.Publish(ctx, ev); err != nil {
			span.RecordError(err)
			s.metrics.IncEnrichmentFailure()
			s.log.Warn("enrichment dispatch failed", zap.String("result_id", ev.ResultID), zap.Error(err))
		}
	}()
}

func (s *Service) Result(ctx context.Context, id string) (assessment.AssessmentResult, error) {
	r, err := s.results.GetResult(ctx, id)
	if err != nil {
		return assessment.AssessmentResult{}, lookupError(err, "result %s not found", id)
	}
	return r, nil
}

func (s *Service) ResultForSession(ctx context.Context, sessionID string) (assessment.AssessmentResult, error) {
	r, err := s.results.GetBySession(ctx, sessionID)
	if err != nil {
		return assessment.AssessmentResult{}, lookupError(err, "no result for session %s", sessionID)
	}
	return r, nil
}

func (s *Service) Results(ctx context.Context) ([]assessment.AssessmentResult, error) {
	rs, err := s.results.ListResults(ctx)
	if err != nil {
		return nil, assessment.NewPersistenceError("list results", err)
	}
	return rs, nil
}

func (s *Service) Matches(ctx context.Context, resultID string) ([]assessment.VentureMatch, error) {
	if _, err := s.Result(ctx, resultID); err != nil {
		return nil, err
	}
	ms, err := s.matches.ListForResult(ctx, resultID)
	if err != nil {
		return nil, assessment.NewPersistenceError("load matches", err)
	}
	return ms, nil
}

func (s *Service) Questions(ctx context.Context) ([]assessment.Question, error) {
	return s.questions(ctx)
}

func (s *Service) Ventures(ctx context.Context) ([]assessment.VentureProfile, error) {
	vs, err := s.ventures.ListActiveVentures(ctx)
	if err != nil {
		return nil, assessment.NewPersistenceError("load ventures", err)
	}
	return vs, nil
}

// Preview scores responses without a session and without persisting
// anything. Unanswered questions are allowed. When ventures is nil the active
// ventures are used.
func (s *Service) Preview(ctx context.Context, applicantName string, responses []assessment.Response, ventures []assessment.VentureProfile) (Outcome, error) {
	questions, err := s.questions(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if err := checkSubmitted(questions, responses); err != nil {
		return Outcome{}, err
	}
	if ventures == nil {
		if ventures, err = s.Ventures(ctx); err != nil {
			return Outcome{}, err
		}
	}
	result := scoring.Score(questions, responses, applicantName)
	return Outcome{Result: result, Matches: matching.Match(result, ventures)}, nil
}

func (s *Service) questions(ctx context.Context) ([]assessment.Question, error) {
	qs, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, assessment.NewPersistenceError("load questions", err)
	}
	return qs, nil
}

func lookupError(err error, format string, id string) error {
	if errors.Is(err, assessment.ErrNotFound) {
		return assessment.NewNotFoundError(format, id)
	}
	return assessment.NewPersistenceError("lookup", err)
}

func indexQuestions(qs []assessment.Question) map[string]assessment.Question {
	byID := make(map[string]assessment.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	return byID
}

func checkResponse(byID map[string]assessment.Question, r assessment.Response) error {
	q, ok := byID[r.QuestionID]
	if !ok {
		return assessment.NewValidationError("unknown question %q", r.QuestionID)
	}
	return catalog.CheckValue(q, r.Value)
}

// checkSubmitted rejects unknown questions, repeated questions and values of
// the wrong shape.
func checkSubmitted(questions []assessment.Question, responses []assessment.Response) error {
	byID := indexQuestions(questions)
	seen := make(map[string]bool, len(responses))
	for _, r := range responses {
		if err := checkResponse(byID, r); err != nil {
			return err
		}
		if seen[r.QuestionID] {
			return assessment.NewValidationError("question %s answered more than once", r.QuestionID)
		}
		seen[r.QuestionID] = true
	}
	return nil
}

func countMissing(questions []assessment.Question, responses []assessment.Response) int {
	answered := make(map[string]bool, len(responses))
	for _, r := range responses {
		answered[r.QuestionID] = true
	}
	missing := 0
	for _, q := range questions {
		if !answered[q.ID] {
			missing++
		}
	}
	return missing
}
