// Package scoring turns a set of raw questionnaire answers into dimension
// scores, venture-fit scores, team compatibility, an operator-type
// classification and the narrative that goes with it.
//
// Everything here is a pure function of its inputs. Missing or malformed
// answers contribute nothing; there is no error path.
package scoring

import (
	"math"
	"sort"

	"github.com/joelkehle/venturefit/internal/assessment"
)

const (
	likertMin = 1
	likertMax = 5

	scenarioDeltaScale   = 0.5
	scenarioTeamBonus    = 0.2
	teamScoreCeiling     = 5.0
	secondaryTypeMaxGap  = 0.4
	gapEpsilon           = 1e-9
	growthPenalty        = 0.85
	operatorPenalty      = 0.9
	crossCheckClaim      = 4.0
	crossCheckEvidence   = 3.0
	confidenceStrongAt   = 4.0
	confidenceModerateAt = 3.4
)

type answer struct {
	q assessment.Question
	v assessment.Value
}

// Score runs the full pipeline. Responses for unknown questions are ignored and
// the last response wins when a question is answered twice.
func Score(questions []assessment.Question, responses []assessment.Response, applicantName string) assessment.AssessmentResult {
	answers := join(questions, responses)

	trap := analyzeTraps(answers)
	dims := dimensionScores(answers)
	applyScenarioAdjustments(&dims, answers)
	fit := CrossValidate(ventureFit(answers), dims)
	style := styleTraits(answers)
	team := teamCompatibility(style, answers)
	primary, secondary := Classify(fit)
	confidence := Confidence(fit.ForType(primary), trap.Level)
	story := Narrate(applicantName, primary, secondary, trap)

	return assessment.AssessmentResult{
		ApplicantName:           applicantName,
		DimensionScores:         dims,
		VentureFitScores:        fit,
		TeamCompatibilityScores: team,
		StyleTraits:             style,
		TrapAnalysis:            trap,
		PrimaryOperatorType:     primary,
		SecondaryOperatorType:   secondary,
		ConfidenceLevel:         confidence,
		Summary:                 story.Summary,
		Strengths:               story.Strengths,
		Weaknesses:              story.Weaknesses,
		WeaknessSummary:         story.WeaknessSummary,
	}
}

func join(questions []assessment.Question, responses []assessment.Response) []answer {
	byID := make(map[string]assessment.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	latest := make(map[string]assessment.Value, len(responses))
	for _, r := range responses {
		if _, ok := byID[r.QuestionID]; !ok {
			continue
		}
		latest[r.QuestionID] = r.Value
	}
	out := make([]answer, 0, len(latest))
	for id, v := range latest {
		out = append(out, answer{q: byID[id], v: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].q.Number != out[j].q.Number {
			return out[i].q.Number < out[j].q.Number
		}
		return out[i].q.ID < out[j].q.ID
	})
	return out
}

// ReverseAdjust applies reverse scoring to a raw likert answer.
func ReverseAdjust(q assessment.Question, raw int) int {
	if q.IsReverse {
		return 6 - raw
	}
	return raw
}

// likert returns the reverse-adjusted value of an in-range likert answer.
func likert(a answer) (int, bool) {
	if a.q.Type != assessment.TypeLikert {
		return 0, false
	}
	raw, ok := a.v.Int()
	if !ok || raw < likertMin || raw > likertMax {
		return 0, false
	}
	return ReverseAdjust(a.q, raw), true
}

// ClassifyTrap maps a trap-score sum to its level and flag.
func ClassifyTrap(score int) (assessment.TrapLevel, bool) {
	switch {
	case score >= 16:
		return assessment.TrapLikelyExaggeration, true
	case score >= 11:
		return assessment.TrapElevated, true
	default:
		return assessment.TrapNormal, false
	}
}

func analyzeTraps(answers []answer) assessment.TrapAnalysis {
	score := 0
	for _, a := range answers {
		if !a.q.IsTrap {
			continue
		}
		raw, ok := a.v.Int()
		if !ok || raw < likertMin || raw > likertMax {
			continue
		}
		score += ReverseAdjust(a.q, raw)
	}
	level, flag := ClassifyTrap(score)
	return assessment.TrapAnalysis{Score: score, Level: level, ShouldFlag: flag}
}

func dimensionScores(answers []answer) assessment.DimensionScores {
	var dims assessment.DimensionScores
	for _, a := range answers {
		if a.q.IsTrap {
			continue
		}
		v, ok := likert(a)
		if !ok {
			continue
		}
		if shares := MixedShares(a.q.Number); len(shares) > 0 {
			for _, s := range shares {
				dims.Add(s.Dimension, float64(v)*s.Fraction)
			}
			continue
		}
		for _, b := range coreBuckets {
			if a.q.Number >= b.lo && a.q.Number <= b.hi {
				dims.Add(b.dim, float64(v))
				break
			}
		}
	}
	return dims
}

// applyScenarioAdjustments adds half of each mapped delta to the matching
// dimension. No clamping happens here.
func applyScenarioAdjustments(dims *assessment.DimensionScores, answers []answer) {
	for _, a := range answers {
		m, ok := scenarioMapping(a)
		if !ok {
			continue
		}
		for _, trait := range sortedTraits(m) {
			if dim, ok := dimensionAliases[trait]; ok {
				dims.Add(dim, m[trait]*scenarioDeltaScale)
			}
		}
	}
}

func scenarioMapping(a answer) (assessment.OptionMapping, bool) {
	if a.q.Type != assessment.TypeScenario {
		return nil, false
	}
	if _, ok := a.v.Int(); !ok {
		return nil, false
	}
	return a.q.Mapping(a.v)
}

func ventureFit(answers []answer) assessment.VentureFitScores {
	var fit assessment.VentureFitScores
	for _, g := range ventureFitGroups {
		sum, n := 0, 0
		for _, a := range answers {
			if a.q.Number < g.lo || a.q.Number > g.hi {
				continue
			}
			if v, ok := likert(a); ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			g.set(&fit, float64(sum)/float64(n))
		}
	}
	return fit
}

func toFivePoint(raw, max float64) float64 {
	return raw / max * 5
}

// CrossValidate discounts venture-fit claims the trait evidence does not back.
func CrossValidate(fit assessment.VentureFitScores, dims assessment.DimensionScores) assessment.VentureFitScores {
	hustle := toFivePoint(dims.Hustle, maxHustle)
	leadership := toFivePoint(dims.Leadership, maxLeadership)
	if fit.Growth >= crossCheckClaim && hustle < crossCheckEvidence && leadership < crossCheckEvidence {
		fit.Growth *= growthPenalty
	}
	execution := toFivePoint(dims.Execution, maxExecution)
	if fit.Operator >= crossCheckClaim && execution < crossCheckEvidence {
		fit.Operator *= operatorPenalty
	}
	return fit
}

func styleTraits(answers []answer) assessment.StyleTraits {
	var style assessment.StyleTraits
	for _, a := range answers {
		if a.q.Type != assessment.TypeForcedChoice {
			continue
		}
		if _, numeric := a.v.Int(); numeric || a.v.IsZero() {
			continue
		}
		m, ok := a.q.Mapping(a.v)
		if !ok {
			continue
		}
		for _, trait := range sortedTraits(m) {
			style.Add(trait, m[trait])
		}
	}
	return style
}

// dominance scores a pair of opposing traits: 4.0 when the first leads, 3.5
// when the second leads, 3.0 when neither shows a positive signal or they tie.
func dominance(first, second float64) float64 {
	if first <= 0 && second <= 0 {
		return 3.0
	}
	switch {
	case first > second:
		return 4.0
	case second > first:
		return 3.5
	}
	return 3.0
}

func teamCompatibility(style assessment.StyleTraits, answers []answer) assessment.TeamCompatibilityScores {
	team := assessment.TeamCompatibilityScores{
		WorkingStyle:     dominance(style.Autonomy, style.Collaboration),
		Communication:    dominance(style.Direct, style.Diplomatic),
		ConflictResponse: dominance(style.Diplomatic, style.Direct),
		DecisionMaking:   dominance(style.ActionBias, style.DeliberationBias),
		Collaboration:    3.0,
	}
	if style.Collaboration > 0 {
		team.Collaboration = 4.0
	}
	for _, a := range answers {
		m, ok := scenarioMapping(a)
		if !ok {
			continue
		}
		if _, ok := m["communication"]; ok {
			team.Communication += scenarioTeamBonus
		}
		if _, ok := m["collaboration"]; ok {
			team.Collaboration += scenarioTeamBonus
		}
	}
	team.WorkingStyle = math.Min(team.WorkingStyle, teamScoreCeiling)
	team.Communication = math.Min(team.Communication, teamScoreCeiling)
	team.ConflictResponse = math.Min(team.ConflictResponse, teamScoreCeiling)
	team.DecisionMaking = math.Min(team.DecisionMaking, teamScoreCeiling)
	team.Collaboration = math.Min(team.Collaboration, teamScoreCeiling)
	return team
}

// Classify picks the primary operator type (ties go to the earlier type in
// assessment.OperatorTypes) and a secondary type when it trails by at most 0.4.
func Classify(fit assessment.VentureFitScores) (assessment.OperatorType, *assessment.OperatorType) {
	primary := assessment.OperatorTypes[0]
	for _, t := range assessment.OperatorTypes[1:] {
		if fit.ForType(t) > fit.ForType(primary) {
			primary = t
		}
	}
	var runnerUp assessment.OperatorType
	for _, t := range assessment.OperatorTypes {
		if t == primary {
			continue
		}
		if runnerUp == "" || fit.ForType(t) > fit.ForType(runnerUp) {
			runnerUp = t
		}
	}
	if fit.ForType(primary)-fit.ForType(runnerUp) <= secondaryTypeMaxGap+gapEpsilon {
		return primary, assessment.OperatorTypePtr(runnerUp)
	}
	return primary, nil
}

// Confidence grades the primary type's own venture-fit score, downgraded by
// the trap level.
func Confidence(primaryScore float64, level assessment.TrapLevel) assessment.ConfidenceLevel {
	switch level {
	case assessment.TrapLikelyExaggeration:
		return assessment.ConfidenceEmerging
	case assessment.TrapElevated:
		if primaryScore >= confidenceStrongAt {
			return assessment.ConfidenceModerate
		}
		return assessment.ConfidenceEmerging
	}
	switch {
	case primaryScore >= confidenceStrongAt:
		return assessment.ConfidenceStrong
	case primaryScore >= confidenceModerateAt:
		return assessment.ConfidenceModerate
	}
	return assessment.ConfidenceEmerging
}

func sortedTraits(m assessment.OptionMapping) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
