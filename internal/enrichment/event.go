// Package enrichment publishes "enrichment requested" events for completed
// assessments. Delivery is best effort and nothing is read back.
package enrichment

import (
	"context"

	"go.uber.org/zap"

	"github.com/joelkehle/venturefit/internal/assessment"
)

// TopMatches is how many venture matches travel with an event.
const TopMatches = 3

type Event struct {
	ResultID                string                             `json:"resultId"`
	SessionID               string                             `json:"sessionId"`
	ApplicantName           string                             `json:"applicantName"`
	DimensionScores         assessment.DimensionScores         `json:"dimensionScores"`
	VentureFitScores        assessment.VentureFitScores        `json:"ventureFitScores"`
	TeamCompatibilityScores assessment.TeamCompatibilityScores `json:"teamCompatibilityScores"`
	PrimaryType             assessment.OperatorType            `json:"primaryType"`
	SecondaryType           *assessment.OperatorType           `json:"secondaryType"`
	ConfidenceLevel         assessment.ConfidenceLevel         `json:"confidenceLevel"`
	TopVentureMatches       []assessment.VentureMatch          `json:"topVentureMatches"`
	TrapAnalysis            assessment.TrapAnalysis            `json:"trapAnalysis"`
	StyleTraits             assessment.StyleTraits             `json:"styleTraits"`
}

// NewEvent expects matches already sorted best first.
func NewEvent(result assessment.AssessmentResult, matches []assessment.VentureMatch) Event {
	n := min(len(matches), TopMatches)
	top := make([]assessment.VentureMatch, n)
	copy(top, matches[:n])
	return Event{
		ResultID:                result.ID,
		SessionID:               result.SessionID,
		ApplicantName:           result.ApplicantName,
		DimensionScores:         result.DimensionScores,
		VentureFitScores:        result.VentureFitScores,
		TeamCompatibilityScores: result.TeamCompatibilityScores,
		PrimaryType:             result.PrimaryOperatorType,
		SecondaryType:           result.SecondaryOperatorType,
		ConfidenceLevel:         result.ConfidenceLevel,
		TopVentureMatches:       top,
		TrapAnalysis:            result.TrapAnalysis,
		StyleTraits:             result.StyleTraits,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher records events in the log instead of sending them anywhere.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, ev Event) error {
	if p.Logger == nil {
		return nil
	}
	p.Logger.Info("enrichment requested",
		zap.String("result_id", ev.ResultID),
		zap.String("session_id", ev.SessionID),
		zap.String("primary_type", string(ev.PrimaryType)),
		zap.String("confidence", string(ev.ConfidenceLevel)),
		zap.Int("top_matches", len(ev.TopVentureMatches)),
	)
	return nil
}
