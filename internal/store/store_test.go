package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joelkehle/venturefit/internal/assessment"
)

func testConfig() (Config, *time.Time) {
	now := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	return Config{
		Clock: func() time.Time { return now },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%03d", n)
		},
	}, &now
}

// backends returns a fresh instance of each store kind.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	cfg, _ := testConfig()
	dir := t.TempDir()
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "test.db"), cfg)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	file, err := NewFileStore(filepath.Join(dir, "state.json"), cfg)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return map[string]Backend{
		"memory": NewMemoryStore(cfg),
		"file":   file,
		"sqlite": sqlite,
	}
}

func sampleResult() assessment.AssessmentResult {
	return assessment.AssessmentResult{
		ApplicantName:         "Dana",
		DimensionScores:       assessment.DimensionScores{Ownership: 32, Execution: 32.5},
		VentureFitScores:      assessment.VentureFitScores{Operator: 4.5},
		PrimaryOperatorType:   assessment.OperationalLeader,
		SecondaryOperatorType: assessment.OperatorTypePtr(assessment.GrowthCatalyst),
		ConfidenceLevel:       assessment.ConfidenceStrong,
		TrapAnalysis:          assessment.TrapAnalysis{Score: 10, Level: assessment.TrapNormal},
		Strengths:             []string{"a", "b"},
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sess, err := s.CreateSession(ctx, assessment.Session{ApplicantID: "app-1", ApplicantName: "Dana"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if sess.ID == "" || sess.Status != assessment.SessionPending {
				t.Fatalf("unexpected session %+v", sess)
			}
			if _, err := s.CreateSession(ctx, assessment.Session{ID: sess.ID}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			if err := s.MarkStarted(ctx, sess.ID); err != nil {
				t.Fatalf("mark started: %v", err)
			}
			got, _ := s.GetSession(ctx, sess.ID)
			if got.Status != assessment.SessionInProgress || got.StartedAt.IsZero() {
				t.Fatalf("expected in-progress session, got %+v", got)
			}
			if done, err := s.MarkCompleted(ctx, sess.ID); err != nil || !done {
				t.Fatalf("mark completed: done=%v err=%v", done, err)
			}
			if done, err := s.MarkCompleted(ctx, sess.ID); err != nil || done {
				t.Fatalf("second mark completed must not transition: done=%v err=%v", done, err)
			}
			if err := s.MarkStarted(ctx, sess.ID); err != nil {
				t.Fatalf("mark started after completion: %v", err)
			}
			got, _ = s.GetSession(ctx, sess.ID)
			if got.Status != assessment.SessionCompleted || got.CompletedAt.IsZero() {
				t.Fatalf("expected completed session, got %+v", got)
			}
			if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, assessment.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := s.MarkCompleted(ctx, "missing"); !errors.Is(err, assessment.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestResponsesUpsertPerQuestion(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sess, _ := s.CreateSession(ctx, assessment.Session{ApplicantID: "app-1"})
			err := s.PutResponses(ctx, sess.ID, []assessment.Response{
				{QuestionID: "q01", Value: assessment.Numeric(3)},
				{QuestionID: "q61", Value: assessment.Choice("A")},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.PutResponses(ctx, sess.ID, []assessment.Response{{QuestionID: "q01", Value: assessment.Numeric(5)}}); err != nil {
				t.Fatalf("put again: %v", err)
			}
			rs, err := s.GetAllForSession(ctx, sess.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if len(rs) != 2 {
				t.Fatalf("expected 2 responses, got %d", len(rs))
			}
			if n, ok := rs[0].Value.Int(); rs[0].QuestionID != "q01" || !ok || n != 5 {
				t.Fatalf("expected q01=5, got %+v", rs[0])
			}
			if rs[1].Value.Key() != "A" {
				t.Fatalf("expected q61=A, got %+v", rs[1])
			}
			if err := s.PutResponses(ctx, "missing", nil); !errors.Is(err, assessment.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestResponsesFrozenAfterCompletion(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sess, _ := s.CreateSession(ctx, assessment.Session{ApplicantID: "app-1"})
			if err := s.PutResponses(ctx, sess.ID, []assessment.Response{{QuestionID: "q01", Value: assessment.Numeric(4)}}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := s.MarkCompleted(ctx, sess.ID); err != nil {
				t.Fatalf("mark completed: %v", err)
			}
			err := s.PutResponses(ctx, sess.ID, []assessment.Response{{QuestionID: "q01", Value: assessment.Numeric(1)}})
			if !errors.Is(err, assessment.ErrSessionCompleted) {
				t.Fatalf("expected ErrSessionCompleted, got %v", err)
			}
			rs, _ := s.GetAllForSession(ctx, sess.ID)
			if n, _ := rs[0].Value.Int(); len(rs) != 1 || n != 4 {
				t.Fatalf("completed answers changed: %+v", rs)
			}
		})
	}
}

func TestUpsertBySessionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, created, err := s.UpsertBySession(ctx, "sess-1", sampleResult())
			if err != nil || !created {
				t.Fatalf("first upsert: created=%v err=%v", created, err)
			}
			second := sampleResult()
			second.ApplicantName = "Someone else"
			again, created, err := s.UpsertBySession(ctx, "sess-1", second)
			if err != nil || created {
				t.Fatalf("second upsert: created=%v err=%v", created, err)
			}
			if again.ID != first.ID || again.ApplicantName != "Dana" {
				t.Fatalf("expected stored result to win, got %+v", again)
			}
			bySession, err := s.GetBySession(ctx, "sess-1")
			if err != nil || bySession.ID != first.ID {
				t.Fatalf("get by session: %+v err=%v", bySession, err)
			}
			byID, err := s.GetResult(ctx, first.ID)
			if err != nil {
				t.Fatalf("get result: %v", err)
			}
			if byID.SecondaryOperatorType == nil || *byID.SecondaryOperatorType != assessment.GrowthCatalyst {
				t.Fatalf("expected secondary type to survive storage, got %+v", byID.SecondaryOperatorType)
			}
			if byID.DimensionScores.Execution != 32.5 {
				t.Fatalf("expected execution 32.5, got %v", byID.DimensionScores.Execution)
			}
			all, _ := s.ListResults(ctx)
			if len(all) != 1 {
				t.Fatalf("expected one stored result, got %d", len(all))
			}
			if _, err := s.GetResult(ctx, "missing"); !errors.Is(err, assessment.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestConcurrentUpsertKeepsOneResult(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			ids := make(chan string, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					r, _, err := s.UpsertBySession(ctx, "sess-race", sampleResult())
					if err != nil {
						t.Errorf("upsert: %v", err)
						return
					}
					ids <- r.ID
				}()
			}
			wg.Wait()
			close(ids)
			var first string
			for id := range ids {
				if first == "" {
					first = id
				}
				if id != first {
					t.Fatalf("expected one result id, got %s and %s", first, id)
				}
			}
		})
	}
}

func TestReplaceAllForResult(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r, _, _ := s.UpsertBySession(ctx, "sess-1", sampleResult())
			first := []assessment.VentureMatch{
				{VentureID: "v1", OverallScore: 90, MatchReasons: []string{"x"}, Concerns: []string{}},
				{VentureID: "v2", OverallScore: 70},
			}
			if err := s.ReplaceAllForResult(ctx, r.ID, first); err != nil {
				t.Fatalf("replace: %v", err)
			}
			if err := s.ReplaceAllForResult(ctx, r.ID, first[1:]); err != nil {
				t.Fatalf("replace again: %v", err)
			}
			got, err := s.ListForResult(ctx, r.ID)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != 1 || got[0].VentureID != "v2" || got[0].ResultID != r.ID {
				t.Fatalf("expected only v2, got %+v", got)
			}
			if err := s.ReplaceAllForResult(ctx, "missing", first); !errors.Is(err, assessment.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestVentureProfiles(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, v := range []assessment.VentureProfile{
				{ID: "b", Name: "Beta", IdealOperatorType: assessment.GrowthCatalyst, Active: true},
				{ID: "a", Name: "Alpha", IdealOperatorType: assessment.ProductArchitect, Active: false},
				{ID: "c", Name: "Gamma", IdealOperatorType: assessment.VisionaryBuilder, Active: true,
					DimensionWeights: map[assessment.Dimension]float64{assessment.DimHustle: 1}},
			} {
				if err := s.UpsertVentureProfile(ctx, v); err != nil {
					t.Fatalf("upsert %s: %v", v.ID, err)
				}
			}
			if err := s.UpsertVentureProfile(ctx, assessment.VentureProfile{ID: "b", Name: "Beta 2", IdealOperatorType: assessment.GrowthCatalyst, Active: true}); err != nil {
				t.Fatalf("update b: %v", err)
			}
			active, err := s.ListActiveVentures(ctx)
			if err != nil {
				t.Fatalf("list active: %v", err)
			}
			if len(active) != 2 || active[0].Name != "Beta 2" || active[1].ID != "c" {
				t.Fatalf("unexpected active profiles %+v", active)
			}
			if active[1].DimensionWeights[assessment.DimHustle] != 1 {
				t.Fatalf("expected weights to survive storage, got %+v", active[1].DimensionWeights)
			}
			all, _ := s.ListVentureProfiles(ctx, false)
			if len(all) != 3 {
				t.Fatalf("expected 3 profiles, got %d", len(all))
			}
		})
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg, _ := testConfig()
	dbPath := filepath.Join(t.TempDir(), "roundtrip.db")

	s1, err := NewSQLiteStore(dbPath, cfg)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	sess, _ := s1.CreateSession(ctx, assessment.Session{ApplicantID: "app-9", ApplicantName: "Robin"})
	r, _, err := s1.UpsertBySession(ctx, sess.ID, sampleResult())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(dbPath, cfg)
	if err != nil {
		t.Fatalf("reopen sqlite store: %v", err)
	}
	defer s2.Close()
	got, err := s2.GetSession(ctx, sess.ID)
	if err != nil || got.ApplicantName != "Robin" || !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Fatalf("session did not survive reopen: %+v err=%v", got, err)
	}
	if _, err := s2.GetResult(ctx, r.ID); err != nil {
		t.Fatalf("result did not survive reopen: %v", err)
	}
	if err := s2.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestFileStoreReload(t *testing.T) {
	ctx := context.Background()
	cfg, _ := testConfig()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s1, err := NewFileStore(path, cfg)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	sess, _ := s1.CreateSession(ctx, assessment.Session{ApplicantID: "app-3"})
	_ = s1.PutResponses(ctx, sess.ID, []assessment.Response{{QuestionID: "q02", Value: assessment.Numeric(4)}})
	r, _, _ := s1.UpsertBySession(ctx, sess.ID, sampleResult())
	_ = s1.ReplaceAllForResult(ctx, r.ID, []assessment.VentureMatch{{VentureID: "v1", OverallScore: 80}})
	_ = s1.UpsertVentureProfile(ctx, assessment.VentureProfile{ID: "v1", Name: "One", IdealOperatorType: assessment.OperationalLeader, Active: true})

	s2, err := NewFileStore(path, cfg)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	rs, _ := s2.GetAllForSession(ctx, sess.ID)
	if len(rs) != 1 {
		t.Fatalf("expected 1 response after reload, got %d", len(rs))
	}
	if got, err := s2.GetBySession(ctx, sess.ID); err != nil || got.ID != r.ID {
		t.Fatalf("expected result after reload, got %+v err=%v", got, err)
	}
	ms, _ := s2.ListForResult(ctx, r.ID)
	vs, _ := s2.ListActiveVentures(ctx)
	if len(ms) != 1 || len(vs) != 1 {
		t.Fatalf("expected matches and ventures after reload, got %d/%d", len(ms), len(vs))
	}
}

func TestOpenPicksBackend(t *testing.T) {
	cfg, _ := testConfig()
	dir := t.TempDir()
	cases := []struct{ path, want string }{
		{"", "*store.MemoryStore"},
		{filepath.Join(dir, "state.JSON"), "*store.FileStore"},
		{filepath.Join(dir, "venturefit.db"), "*store.SQLiteStore"},
	}
	for _, tc := range cases {
		b, err := Open(tc.path, cfg)
		if err != nil {
			t.Fatalf("open %q: %v", tc.path, err)
		}
		if got := fmt.Sprintf("%T", b); got != tc.want {
			t.Fatalf("open %q: expected %s, got %s", tc.path, tc.want, got)
		}
		b.Close()
	}
}
