package store

import (
	"context"
	"strings"

	"github.com/joelkehle/venturefit/internal/assessment"
)

// Backend is the full set of operations every store implements.
type Backend interface {
	CreateSession(ctx context.Context, sess assessment.Session) (assessment.Session, error)
	GetSession(ctx context.Context, id string) (assessment.Session, error)
	MarkStarted(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) (bool, error)

	PutResponses(ctx context.Context, sessionID string, rs []assessment.Response) error
	GetAllForSession(ctx context.Context, sessionID string) ([]assessment.Response, error)

	UpsertBySession(ctx context.Context, sessionID string, result assessment.AssessmentResult) (assessment.AssessmentResult, bool, error)
	GetBySession(ctx context.Context, sessionID string) (assessment.AssessmentResult, error)
	GetResult(ctx context.Context, id string) (assessment.AssessmentResult, error)
	ListResults(ctx context.Context) ([]assessment.AssessmentResult, error)

	ReplaceAllForResult(ctx context.Context, resultID string, matches []assessment.VentureMatch) error
	ListForResult(ctx context.Context, resultID string) ([]assessment.VentureMatch, error)

	UpsertVentureProfile(ctx context.Context, v assessment.VentureProfile) error
	ListVentureProfiles(ctx context.Context, activeOnly bool) ([]assessment.VentureProfile, error)
	ListActiveVentures(ctx context.Context) ([]assessment.VentureProfile, error)

	Health(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*MemoryStore)(nil)
	_ Backend = (*FileStore)(nil)
	_ Backend = (*SQLiteStore)(nil)
)

// Open picks a backend from path: empty for memory, *.json for a snapshot
// file, anything else is a SQLite database.
func Open(path string, cfg Config) (Backend, error) {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return NewMemoryStore(cfg), nil
	case strings.HasSuffix(strings.ToLower(path), ".json"):
		return NewFileStore(path, cfg)
	default:
		return NewSQLiteStore(path, cfg)
	}
}
