// Package store holds the persistence backends behind the submission service:
// an in-memory store, a JSON snapshot file store and SQLite.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/venturefit/internal/assessment"
)

type Config struct {
	Clock func() time.Time
	NewID func() string
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return c
}

// MemoryStore keeps everything in maps guarded by one mutex.
type MemoryStore struct {
	mu  sync.Mutex
	cfg Config

	sessions  map[string]*assessment.Session
	responses map[string]map[string]assessment.Response
	results   map[string]*assessment.AssessmentResult
	bySession map[string]string
	matches   map[string][]assessment.VentureMatch
	ventures  map[string]*assessment.VentureProfile
	order     []string
}

func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		cfg:       cfg.withDefaults(),
		sessions:  map[string]*assessment.Session{},
		responses: map[string]map[string]assessment.Response{},
		results:   map[string]*assessment.AssessmentResult{},
		bySession: map[string]string{},
		matches:   map[string][]assessment.VentureMatch{},
		ventures:  map[string]*assessment.VentureProfile{},
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateSession(_ context.Context, sess assessment.Session) (assessment.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = s.cfg.NewID()
	}
	if _, exists := s.sessions[sess.ID]; exists {
		return assessment.Session{}, fmt.Errorf("session %s: %w", sess.ID, ErrExists)
	}
	if sess.Status == "" {
		sess.Status = assessment.SessionPending
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.cfg.Clock().UTC()
	}
	cp := sess
	s.sessions[sess.ID] = &cp
	return sess, nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (assessment.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return assessment.Session{}, fmt.Errorf("session %s: %w", id, assessment.ErrNotFound)
	}
	return *sess, nil
}

// MarkStarted moves a pending session to in-progress. Other states are left alone.
func (s *MemoryStore) MarkStarted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, assessment.ErrNotFound)
	}
	if sess.Status == assessment.SessionPending {
		sess.Status = assessment.SessionInProgress
		sess.StartedAt = s.cfg.Clock().UTC()
	}
	return nil
}

// MarkCompleted is idempotent; completing twice keeps the first timestamp.
// It reports whether this call moved the session to completed.
func (s *MemoryStore) MarkCompleted(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false, fmt.Errorf("session %s: %w", id, assessment.ErrNotFound)
	}
	if sess.Status == assessment.SessionCompleted {
		return false, nil
	}
	now := s.cfg.Clock().UTC()
	if sess.StartedAt.IsZero() {
		sess.StartedAt = now
	}
	sess.Status = assessment.SessionCompleted
	sess.CompletedAt = now
	return true, nil
}

// PutResponses upserts answers by question. Answers of a completed session
// are frozen.
func (s *MemoryStore) PutResponses(_ context.Context, sessionID string, rs []assessment.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, assessment.ErrNotFound)
	}
	if sess.Status == assessment.SessionCompleted {
		return fmt.Errorf("session %s: %w", sessionID, assessment.ErrSessionCompleted)
	}
	byQuestion := s.responses[sessionID]
	if byQuestion == nil {
		byQuestion = map[string]assessment.Response{}
		s.responses[sessionID] = byQuestion
	}
	for _, r := range rs {
		byQuestion[r.QuestionID] = r
	}
	return nil
}

// GetAllForSession returns stored responses ordered by question id.
func (s *MemoryStore) GetAllForSession(_ context.Context, sessionID string) ([]assessment.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]assessment.Response, 0, len(s.responses[sessionID]))
	for _, r := range s.responses[sessionID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

// UpsertBySession stores result for a session unless one already exists, in
// which case the stored result is returned with created=false.
func (s *MemoryStore) UpsertBySession(_ context.Context, sessionID string, result assessment.AssessmentResult) (assessment.AssessmentResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.bySession[sessionID]; ok {
		return cloneResult(*s.results[id]), false, nil
	}
	if result.ID == "" {
		result.ID = s.cfg.NewID()
	}
	result.SessionID = sessionID
	if result.CreatedAt.IsZero() {
		result.CreatedAt = s.cfg.Clock().UTC()
	}
	cp := cloneResult(result)
	s.results[result.ID] = &cp
	s.bySession[sessionID] = result.ID
	return cloneResult(result), true, nil
}

func (s *MemoryStore) GetBySession(_ context.Context, sessionID string) (assessment.AssessmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySession[sessionID]
	if !ok {
		return assessment.AssessmentResult{}, fmt.Errorf("result for session %s: %w", sessionID, assessment.ErrNotFound)
	}
	return cloneResult(*s.results[id]), nil
}

func (s *MemoryStore) GetResult(_ context.Context, id string) (assessment.AssessmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[id]
	if !ok {
		return assessment.AssessmentResult{}, fmt.Errorf("result %s: %w", id, assessment.ErrNotFound)
	}
	return cloneResult(*r), nil
}

// ListResults returns every stored result, oldest first.
func (s *MemoryStore) ListResults(_ context.Context) ([]assessment.AssessmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]assessment.AssessmentResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, cloneResult(*r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ReplaceAllForResult swaps the whole match set under the lock, so readers see
// either the old set or the new one.
func (s *MemoryStore) ReplaceAllForResult(_ context.Context, resultID string, matches []assessment.VentureMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[resultID]; !ok {
		return fmt.Errorf("result %s: %w", resultID, assessment.ErrNotFound)
	}
	next := make([]assessment.VentureMatch, 0, len(matches))
	for _, m := range matches {
		m.ResultID = resultID
		if m.ID == "" {
			m.ID = s.cfg.NewID()
		}
		next = append(next, cloneMatch(m))
	}
	s.matches[resultID] = next
	return nil
}

// ListForResult returns matches in the order they were stored.
func (s *MemoryStore) ListForResult(_ context.Context, resultID string) ([]assessment.VentureMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]assessment.VentureMatch, 0, len(s.matches[resultID]))
	for _, m := range s.matches[resultID] {
		out = append(out, cloneMatch(m))
	}
	return out, nil
}

func (s *MemoryStore) UpsertVentureProfile(_ context.Context, v assessment.VentureProfile) error {
	if v.ID == "" {
		return fmt.Errorf("venture profile id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ventures[v.ID]; !ok {
		s.order = append(s.order, v.ID)
	}
	cp := cloneVenture(v)
	s.ventures[v.ID] = &cp
	return nil
}

// ListVentureProfiles returns all profiles in insertion order; activeOnly
// filters out inactive ones.
func (s *MemoryStore) ListVentureProfiles(_ context.Context, activeOnly bool) ([]assessment.VentureProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]assessment.VentureProfile, 0, len(s.order))
	for _, id := range s.order {
		v := s.ventures[id]
		if activeOnly && !v.Active {
			continue
		}
		out = append(out, cloneVenture(*v))
	}
	return out, nil
}

func (s *MemoryStore) ListActiveVentures(ctx context.Context) ([]assessment.VentureProfile, error) {
	return s.ListVentureProfiles(ctx, true)
}

func (s *MemoryStore) Health(context.Context) error { return nil }
