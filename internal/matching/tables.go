package matching

import "github.com/joelkehle/venturefit/internal/assessment"

const (
	defaultDimensionWeight = 0.5
	defaultCrossTypeScore  = 50
	defaultModifier        = 1.0
	defaultRole            = "General Operator"
	genericReason          = "General profile alignment"
)

// crossType[applicant][ideal] scores operator types that neither match nor
// complement each other. The table is asymmetric.
var crossType = map[assessment.OperatorType]map[assessment.OperatorType]int{
	assessment.OperationalLeader: {
		assessment.ProductArchitect: 65,
		assessment.GrowthCatalyst:   55,
		assessment.VisionaryBuilder: 50,
	},
	assessment.ProductArchitect: {
		assessment.OperationalLeader: 65,
		assessment.GrowthCatalyst:    60,
		assessment.VisionaryBuilder:  70,
	},
	assessment.GrowthCatalyst: {
		assessment.OperationalLeader: 60,
		assessment.ProductArchitect:  60,
		assessment.VisionaryBuilder:  65,
	},
	assessment.VisionaryBuilder: {
		assessment.ProductArchitect: 70,
		assessment.GrowthCatalyst:   65,
	},
}

// preferenceModifiers scale a team-compatibility score by how strongly the
// venture's team prefers that trait.
var preferenceModifiers = map[string]float64{
	"high":        0.9,
	"medium-high": 0.85,
	"medium":      0.8,
	"flexible":    0.75,
	"medium-low":  0.7,
	"low":         0.6,
}

var roleKeywords = map[assessment.Dimension][]string{
	assessment.DimOwnership:      {"Lead", "Manager", "Director"},
	assessment.DimExecution:      {"Operations", "Manager", "Coordinator"},
	assessment.DimHustle:         {"Growth", "Business Development", "Sales"},
	assessment.DimProblemSolving: {"Strategy", "Operations", "Logistics"},
	assessment.DimLeadership:     {"Lead", "Head", "Director"},
}

var strengthReasons = map[assessment.Dimension]string{
	assessment.DimExecution:      "Exceptional execution track record matches the venture's operational demands",
	assessment.DimOwnership:      "High ownership mindset fits a venture that needs self-directed leadership",
	assessment.DimHustle:         "Strong hustle suits the venture's need for relentless commercial drive",
	assessment.DimProblemSolving: "Problem-solving strength fits the venture's complex challenges",
	assessment.DimLeadership:     "Leadership capability matches the venture's team-building needs",
}

// Low hustle and problem solving are not raised as concerns.
var dimensionConcerns = map[assessment.Dimension]string{
	assessment.DimExecution:  "Execution scores may fall short of what this venture requires",
	assessment.DimOwnership:  "May need support taking full ownership in this role",
	assessment.DimLeadership: "Leadership experience may need development for this venture",
}

const (
	concernAdaptation    = "Operator style differs from the venture's ideal profile; adaptation required"
	concernCommunication = "Communication style may need adjustment for this team"
	concernCollaboration = "Collaboration approach may differ from team norms"
)
