package matching

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/venturefit/internal/assessment"
)

func operatorLeaderResult() assessment.AssessmentResult {
	return assessment.AssessmentResult{
		DimensionScores: assessment.DimensionScores{
			Ownership: 32, Execution: 42, Hustle: 24, ProblemSolving: 24, Leadership: 24,
		},
		TeamCompatibilityScores: assessment.TeamCompatibilityScores{
			WorkingStyle: 4, Communication: 3.5, ConflictResponse: 4, DecisionMaking: 4, Collaboration: 3,
		},
		PrimaryOperatorType: assessment.OperationalLeader,
	}
}

func logisticsVenture() assessment.VentureProfile {
	return assessment.VentureProfile{
		ID:                "v-logistics",
		Name:              "FreightLoop",
		Industry:          "Logistics",
		IdealOperatorType: assessment.OperationalLeader,
		DimensionWeights: map[assessment.Dimension]float64{
			assessment.DimExecution:  1.0,
			assessment.DimLeadership: 0.9,
		},
		TeamProfile: map[assessment.TeamDimension]string{
			assessment.TeamCommunication: "high",
		},
		SuggestedRoles: []string{"Chief of Staff", "Head of Operations"},
		Active:         true,
	}
}

func TestOperatorFitRules(t *testing.T) {
	v := assessment.VentureProfile{
		IdealOperatorType:     assessment.GrowthCatalyst,
		SecondaryOperatorType: assessment.OperatorTypePtr(assessment.ProductArchitect),
	}
	assert.Equal(t, 100, OperatorFit(assessment.GrowthCatalyst, nil, v))
	assert.Equal(t, 85, OperatorFit(assessment.ProductArchitect, nil, v))
	assert.Equal(t, 75, OperatorFit(assessment.VisionaryBuilder, assessment.OperatorTypePtr(assessment.GrowthCatalyst), v))
	assert.Equal(t, 55, OperatorFit(assessment.OperationalLeader, nil, v))

	// The cross-type table is asymmetric.
	v = assessment.VentureProfile{IdealOperatorType: assessment.OperationalLeader}
	assert.Equal(t, 60, OperatorFit(assessment.GrowthCatalyst, nil, v))
	assert.Equal(t, 50, OperatorFit(assessment.VisionaryBuilder, nil, v))
}

func TestDimensionFit(t *testing.T) {
	scores := assessment.DimensionScores{Ownership: 50, Execution: 25}
	// Default weights of 0.5 each: (100 + 50) / 5.
	assert.InDelta(t, 30.0, DimensionFit(scores, nil), 1e-9)

	weights := map[assessment.Dimension]float64{
		assessment.DimOwnership:      1,
		assessment.DimExecution:      0,
		assessment.DimHustle:         0,
		assessment.DimProblemSolving: 0,
		assessment.DimLeadership:     0,
	}
	assert.InDelta(t, 100.0, DimensionFit(scores, weights), 1e-9)

	weights[assessment.DimOwnership] = 0
	assert.Equal(t, 50.0, DimensionFit(scores, weights))

	over := assessment.DimensionScores{Ownership: 80, Execution: -10, Hustle: 50, ProblemSolving: 50, Leadership: 50}
	assert.InDelta(t, 80.0, DimensionFit(over, nil), 1e-9)
}

func TestCompatibilityModifiers(t *testing.T) {
	team := assessment.TeamCompatibilityScores{WorkingStyle: 5, Communication: 5, ConflictResponse: 5, DecisionMaking: 5, Collaboration: 5}
	assert.InDelta(t, 100.0, Compatibility(team, nil), 1e-9)

	profile := map[assessment.TeamDimension]string{
		assessment.TeamWorkingStyle:     "High",
		assessment.TeamCommunication:    "low",
		assessment.TeamConflictResponse: "unheard-of",
	}
	// (90 + 60 + 100 + 100 + 100) / 5
	assert.InDelta(t, 90.0, Compatibility(team, profile), 1e-9)
}

func TestMatchOneScoresAndText(t *testing.T) {
	m := MatchOne(operatorLeaderResult(), logisticsVenture())

	assert.Equal(t, "v-logistics", m.VentureID)
	assert.Equal(t, 100, m.OperatorTypeScore)
	assert.Equal(t, Overall(m.OperatorTypeScore, m.DimensionScore, m.CompatibilityScore), m.OverallScore)
	assert.Contains(t, m.MatchReasons, "Strong operator-type alignment with what FreightLoop needs")
	assert.Contains(t, m.MatchReasons, strengthReasons[assessment.DimExecution])
	assert.Equal(t, []string{dimensionConcerns[assessment.DimLeadership]}, m.Concerns)
	assert.Equal(t, "Head of Operations", m.SuggestedRole)
}

func TestReasonsFallBackToGeneric(t *testing.T) {
	res := assessment.AssessmentResult{
		PrimaryOperatorType:     assessment.OperationalLeader,
		TeamCompatibilityScores: assessment.TeamCompatibilityScores{Communication: 3, Collaboration: 3},
	}
	v := assessment.VentureProfile{Name: "Orbit", IdealOperatorType: assessment.VisionaryBuilder}
	m := MatchOne(res, v)
	assert.Equal(t, []string{genericReason}, m.MatchReasons)
	assert.Equal(t, []string{concernAdaptation}, m.Concerns)
}

func TestHustleAndProblemSolvingAreNotConcerns(t *testing.T) {
	res := operatorLeaderResult()
	res.DimensionScores.Hustle = 5
	res.DimensionScores.ProblemSolving = 5
	v := logisticsVenture()
	v.DimensionWeights = map[assessment.Dimension]float64{
		assessment.DimHustle:         1,
		assessment.DimProblemSolving: 1,
	}
	assert.Empty(t, MatchOne(res, v).Concerns)
}

func TestTeamConcerns(t *testing.T) {
	res := operatorLeaderResult()
	res.TeamCompatibilityScores.Communication = 2.5
	res.TeamCompatibilityScores.Collaboration = 2
	c := MatchOne(res, logisticsVenture()).Concerns
	assert.Contains(t, c, concernCommunication)
	assert.Contains(t, c, concernCollaboration)
}

func TestSuggestRole(t *testing.T) {
	hustler := assessment.DimensionScores{Hustle: 30, Ownership: 10}
	assert.Equal(t, "VP Business Development", SuggestRole(hustler, []string{"CFO", "VP Business Development", "Growth Lead"}))
	assert.Equal(t, "CFO", SuggestRole(hustler, []string{"CFO", "Controller"}))
	assert.Equal(t, defaultRole, SuggestRole(hustler, nil))

	// Equal top scores go to the earlier dimension (ownership before leadership).
	tied := assessment.DimensionScores{Ownership: 30, Leadership: 30}
	assert.Equal(t, "Program Manager", SuggestRole(tied, []string{"Head of Product", "Program Manager"}))
}

func TestMatchSortsDescendingAndStable(t *testing.T) {
	res := operatorLeaderResult()
	ideal := logisticsVenture()
	cross := assessment.VentureProfile{ID: "v-a", Name: "A", IdealOperatorType: assessment.VisionaryBuilder}
	crossTwin := assessment.VentureProfile{ID: "v-b", Name: "B", IdealOperatorType: assessment.VisionaryBuilder}

	matches := Match(res, []assessment.VentureProfile{cross, ideal, crossTwin})
	require.Len(t, matches, 3)
	assert.Equal(t, "v-logistics", matches[0].VentureID)
	assert.Equal(t, "v-a", matches[1].VentureID)
	assert.Equal(t, "v-b", matches[2].VentureID)
	assert.Len(t, Top(matches, 2), 2)
	assert.Len(t, Top(matches, 10), 3)
	assert.Empty(t, Match(res, nil))
}

func TestOverallScoreBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	labels := []string{"high", "medium", "low", "flexible", "other", ""}
	for i := 0; i < 500; i++ {
		res := assessment.AssessmentResult{
			PrimaryOperatorType: assessment.OperatorTypes[rng.Intn(4)],
			DimensionScores: assessment.DimensionScores{
				Ownership:      rng.Float64()*70 - 10,
				Execution:      rng.Float64()*70 - 10,
				Hustle:         rng.Float64() * 60,
				ProblemSolving: rng.Float64() * 40,
				Leadership:     rng.Float64() * 40,
			},
			TeamCompatibilityScores: assessment.TeamCompatibilityScores{
				WorkingStyle:     3 + rng.Float64()*2,
				Communication:    3 + rng.Float64()*2,
				ConflictResponse: 3 + rng.Float64()*2,
				DecisionMaking:   3 + rng.Float64()*2,
				Collaboration:    3 + rng.Float64()*2,
			},
		}
		v := assessment.VentureProfile{
			IdealOperatorType: assessment.OperatorTypes[rng.Intn(4)],
			DimensionWeights: map[assessment.Dimension]float64{
				assessment.DimExecution: rng.Float64(),
				assessment.DimHustle:    rng.Float64()*2 - 1,
			},
			TeamProfile: map[assessment.TeamDimension]string{
				assessment.TeamCollaboration: labels[rng.Intn(len(labels))],
			},
		}
		m := MatchOne(res, v)
		require.GreaterOrEqual(t, m.OverallScore, 0)
		require.LessOrEqual(t, m.OverallScore, 100)
		want := int(math.Round(0.4*float64(m.OperatorTypeScore) + 0.4*float64(m.DimensionScore) + 0.2*float64(m.CompatibilityScore)))
		require.Equal(t, want, m.OverallScore)
	}
}
