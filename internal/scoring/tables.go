package scoring

import "github.com/joelkehle/venturefit/internal/assessment"

type numberRange struct {
	lo, hi int
	dim    assessment.Dimension
}

// coreBuckets assign likert questions to a dimension at full weight.
var coreBuckets = []numberRange{
	{1, 8, assessment.DimOwnership},
	{9, 16, assessment.DimExecution},
	{17, 24, assessment.DimHustle},
	{25, 30, assessment.DimProblemSolving},
	{31, 36, assessment.DimLeadership},
}

const (
	trapFirst       = 37
	trapLast        = 40
	ventureFitFirst = 51
	ventureFitLast  = 60
)

// Share is the fraction of a mixed-construct answer credited to one dimension.
type Share struct {
	Dimension assessment.Dimension
	Fraction  float64
}

// mixedConstructs covers questions 41-50. Fractions apply to the
// reverse-adjusted likert value.
var mixedConstructs = map[int][]Share{
	41: {{assessment.DimExecution, 0.5}},
	42: {{assessment.DimExecution, 0.5}, {assessment.DimHustle, 0.25}},
	43: {{assessment.DimLeadership, 0.5}, {assessment.DimProblemSolving, 0.25}},
	44: {{assessment.DimLeadership, 0.5}},
	45: {{assessment.DimOwnership, 0.5}, {assessment.DimHustle, 0.25}},
	46: {{assessment.DimExecution, 0.5}},
	47: {{assessment.DimExecution, 0.5}},
	48: {{assessment.DimHustle, 0.5}},
	49: {{assessment.DimExecution, 0.5}},
	50: {{assessment.DimExecution, 0.5}},
}

type ventureFitGroup struct {
	lo, hi int
	set    func(*assessment.VentureFitScores, float64)
}

var ventureFitGroups = []ventureFitGroup{
	{51, 53, func(v *assessment.VentureFitScores, x float64) { v.Operator = x }},
	{54, 56, func(v *assessment.VentureFitScores, x float64) { v.Product = x }},
	{57, 59, func(v *assessment.VentureFitScores, x float64) { v.Growth = x }},
	{60, 60, func(v *assessment.VentureFitScores, x float64) { v.Vision = x }},
}

// Maximum raw sums used when normalising dimensions to a 0-5 scale.
const (
	maxExecution  = 40.0
	maxHustle     = 40.0
	maxLeadership = 30.0
)

// MixedShares returns the dimension shares for a mixed-construct question number.
func MixedShares(number int) []Share {
	return mixedConstructs[number]
}

// BucketFor returns the dimension a question number belongs to. Mixed
// constructs report their primary dimension. Numbers past the venture-fit range
// return "" because their bucket depends on the question type.
func BucketFor(number int) assessment.Dimension {
	for _, b := range coreBuckets {
		if number >= b.lo && number <= b.hi {
			return b.dim
		}
	}
	switch {
	case number >= trapFirst && number <= trapLast:
		return assessment.DimTrap
	case number >= ventureFitFirst && number <= ventureFitLast:
		return assessment.DimVentureFit
	}
	if shares := mixedConstructs[number]; len(shares) > 0 {
		return shares[0].Dimension
	}
	return ""
}

// dimensionAliases maps scenario trait names onto core dimensions.
var dimensionAliases = map[string]assessment.Dimension{
	"ownership":       assessment.DimOwnership,
	"execution":       assessment.DimExecution,
	"hustle":          assessment.DimHustle,
	"problemSolving":  assessment.DimProblemSolving,
	"problem_solving": assessment.DimProblemSolving,
	"leadership":      assessment.DimLeadership,
}
