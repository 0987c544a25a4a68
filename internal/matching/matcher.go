// Package matching ranks venture profiles against a scored assessment.
//
// Like scoring, it is pure: no I/O and no shared state, so callers may run it
// concurrently for different results.
package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/joelkehle/venturefit/internal/assessment"
)

const (
	operatorWeight      = 0.4
	dimensionWeight     = 0.4
	compatibilityWeight = 0.2

	rawDimensionMax = 50.0
	teamScoreMax    = 5.0

	strongAlignment        = 85
	complementaryAlignment = 70
	adaptationThreshold    = 60
	industryAlignment      = 75
	emphasisWeight         = 0.9
	standoutRaw            = 40.0
	shortfallRaw           = 35.0
	teamConcernBelow       = 3.0
)

// Match scores every venture independently and sorts the matches by overall
// score, highest first. Equal scores keep the order of ventures.
func Match(result assessment.AssessmentResult, ventures []assessment.VentureProfile) []assessment.VentureMatch {
	matches := make([]assessment.VentureMatch, 0, len(ventures))
	for _, v := range ventures {
		matches = append(matches, MatchOne(result, v))
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].OverallScore > matches[j].OverallScore
	})
	return matches
}

// Top returns at most n matches from an already sorted slice.
func Top(matches []assessment.VentureMatch, n int) []assessment.VentureMatch {
	if n < 0 || len(matches) <= n {
		return matches
	}
	return matches[:n]
}

func MatchOne(result assessment.AssessmentResult, v assessment.VentureProfile) assessment.VentureMatch {
	op := OperatorFit(result.PrimaryOperatorType, result.SecondaryOperatorType, v)
	dim := int(math.Round(DimensionFit(result.DimensionScores, v.DimensionWeights)))
	compat := int(math.Round(Compatibility(result.TeamCompatibilityScores, v.TeamProfile)))

	return assessment.VentureMatch{
		VentureID:          v.ID,
		VentureName:        v.Name,
		OverallScore:       Overall(op, dim, compat),
		OperatorTypeScore:  op,
		DimensionScore:     dim,
		CompatibilityScore: compat,
		MatchReasons:       reasons(result, v, op, dim),
		Concerns:           concerns(result, v, op),
		SuggestedRole:      SuggestRole(result.DimensionScores, v.SuggestedRoles),
	}
}

// Overall blends the three component scores.
func Overall(operatorScore, dimensionScore, compatibilityScore int) int {
	return int(math.Round(
		operatorWeight*float64(operatorScore) +
			dimensionWeight*float64(dimensionScore) +
			compatibilityWeight*float64(compatibilityScore),
	))
}

func OperatorFit(primary assessment.OperatorType, secondary *assessment.OperatorType, v assessment.VentureProfile) int {
	switch {
	case primary == v.IdealOperatorType:
		return 100
	case v.SecondaryOperatorType != nil && primary == *v.SecondaryOperatorType:
		return 85
	case secondary != nil && *secondary == v.IdealOperatorType:
		return 75
	}
	if score, ok := crossType[primary][v.IdealOperatorType]; ok {
		return score
	}
	return defaultCrossTypeScore
}

// weightFor returns the venture's weight for a dimension. Absent weights
// default to 0.5 and negative weights count as zero.
func weightFor(weights map[assessment.Dimension]float64, dim assessment.Dimension) float64 {
	w, ok := weights[dim]
	if !ok {
		return defaultDimensionWeight
	}
	return math.Max(w, 0)
}

func clampPercent(x float64) float64 {
	return math.Min(math.Max(x, 0), 100)
}

// DimensionFit is the weight-averaged 0-100 dimension score, or 50 when every
// weight is zero.
func DimensionFit(scores assessment.DimensionScores, weights map[assessment.Dimension]float64) float64 {
	var weighted, total float64
	for _, dim := range assessment.CoreDimensions {
		w := weightFor(weights, dim)
		weighted += clampPercent(scores.Get(dim)/rawDimensionMax*100) * w
		total += w
	}
	if total == 0 {
		return 50
	}
	return weighted / total
}

// Compatibility averages the five team scores after scaling each by the
// venture's preference label.
func Compatibility(team assessment.TeamCompatibilityScores, profile map[assessment.TeamDimension]string) float64 {
	var sum float64
	for _, dim := range assessment.TeamDimensions {
		sum += clampPercent(team.Get(dim)/teamScoreMax*100) * modifierFor(profile[dim])
	}
	return sum / float64(len(assessment.TeamDimensions))
}

func modifierFor(label string) float64 {
	if m, ok := preferenceModifiers[strings.ToLower(strings.TrimSpace(label))]; ok {
		return m
	}
	return defaultModifier
}

func reasons(result assessment.AssessmentResult, v assessment.VentureProfile, op, dim int) []string {
	var out []string
	switch {
	case op >= strongAlignment:
		out = append(out, fmt.Sprintf("Strong operator-type alignment with what %s needs", v.Name))
	case op >= complementaryAlignment:
		out = append(out, fmt.Sprintf("Complementary operator tendencies suit %s", v.Name))
	}
	for _, d := range assessment.CoreDimensions {
		if weightFor(v.DimensionWeights, d) >= emphasisWeight && result.DimensionScores.Get(d) >= standoutRaw {
			out = append(out, strengthReasons[d])
		}
	}
	if dim >= industryAlignment {
		industry := v.Industry
		if industry == "" {
			industry = "the venture's"
		}
		out = append(out, fmt.Sprintf("Trait profile aligns well with %s industry requirements", industry))
	}
	if len(out) == 0 {
		out = append(out, genericReason)
	}
	return out
}

func concerns(result assessment.AssessmentResult, v assessment.VentureProfile, op int) []string {
	out := []string{}
	for _, d := range assessment.CoreDimensions {
		text, ok := dimensionConcerns[d]
		if !ok {
			continue
		}
		if weightFor(v.DimensionWeights, d) >= emphasisWeight && result.DimensionScores.Get(d) < shortfallRaw {
			out = append(out, text)
		}
	}
	if op < adaptationThreshold {
		out = append(out, concernAdaptation)
	}
	if result.TeamCompatibilityScores.Communication < teamConcernBelow {
		out = append(out, concernCommunication)
	}
	if result.TeamCompatibilityScores.Collaboration < teamConcernBelow {
		out = append(out, concernCollaboration)
	}
	return out
}

// SuggestRole picks the first venture role that fits the applicant's strongest
// dimension, falling back to the first listed role.
func SuggestRole(scores assessment.DimensionScores, roles []string) string {
	if len(roles) == 0 {
		return defaultRole
	}
	top := assessment.CoreDimensions[0]
	for _, d := range assessment.CoreDimensions[1:] {
		if scores.Get(d) > scores.Get(top) {
			top = d
		}
	}
	for _, role := range roles {
		lower := strings.ToLower(role)
		for _, kw := range roleKeywords[top] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return role
			}
		}
	}
	return roles[0]
}
