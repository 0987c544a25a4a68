package submission

import (
	"context"

	"github.com/joelkehle/venturefit/internal/assessment"
)

type QuestionCatalog interface {
	ListActive(ctx context.Context) ([]assessment.Question, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, sess assessment.Session) (assessment.Session, error)
	GetSession(ctx context.Context, id string) (assessment.Session, error)
	MarkStarted(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) (bool, error)
}

type ResponseStore interface {
	PutResponses(ctx context.Context, sessionID string, rs []assessment.Response) error
	GetAllForSession(ctx context.Context, sessionID string) ([]assessment.Response, error)
}

// AssessmentResultStore must keep at most one result per session:
// UpsertBySession returns the already stored result with created=false when
// one exists.
type AssessmentResultStore interface {
	UpsertBySession(ctx context.Context, sessionID string, result assessment.AssessmentResult) (assessment.AssessmentResult, bool, error)
	GetBySession(ctx context.Context, sessionID string) (assessment.AssessmentResult, error)
	GetResult(ctx context.Context, id string) (assessment.AssessmentResult, error)
	ListResults(ctx context.Context) ([]assessment.AssessmentResult, error)
}

// VentureMatchStore replaces a result's match set atomically.
type VentureMatchStore interface {
	ReplaceAllForResult(ctx context.Context, resultID string, matches []assessment.VentureMatch) error
	ListForResult(ctx context.Context, resultID string) ([]assessment.VentureMatch, error)
}

type VentureProfileStore interface {
	ListActiveVentures(ctx context.Context) ([]assessment.VentureProfile, error)
}

// Store is satisfied by every backend in the store package.
type Store interface {
	SessionStore
	ResponseStore
	AssessmentResultStore
	VentureMatchStore
	VentureProfileStore
}
