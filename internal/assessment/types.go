package assessment

import (
	"strconv"
	"time"
)

type Dimension string

const (
	DimOwnership      Dimension = "ownership"
	DimExecution      Dimension = "execution"
	DimHustle         Dimension = "hustle"
	DimProblemSolving Dimension = "problemSolving"
	DimLeadership     Dimension = "leadership"
	DimVentureFit     Dimension = "ventureFit"
	DimStyle          Dimension = "style"
	DimScenario       Dimension = "scenario"
	DimTrap           Dimension = "trap"
)

// CoreDimensions lists the five scored trait buckets in their canonical order.
// Ties anywhere in the pipeline resolve to the earlier entry.
var CoreDimensions = []Dimension{DimOwnership, DimExecution, DimHustle, DimProblemSolving, DimLeadership}

type QuestionType string

const (
	TypeLikert       QuestionType = "likert"
	TypeForcedChoice QuestionType = "forcedChoice"
	TypeScenario     QuestionType = "scenario"
)

type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "inProgress"
	SessionCompleted  SessionStatus = "completed"
)

type OperatorType string

const (
	OperationalLeader OperatorType = "Operational Leader"
	ProductArchitect  OperatorType = "Product Architect"
	GrowthCatalyst    OperatorType = "Growth Catalyst"
	VisionaryBuilder  OperatorType = "Visionary Builder"
)

// OperatorTypes is the declared priority order used to break classification ties.
var OperatorTypes = []OperatorType{OperationalLeader, ProductArchitect, GrowthCatalyst, VisionaryBuilder}

func (t OperatorType) Valid() bool {
	for _, o := range OperatorTypes {
		if o == t {
			return true
		}
	}
	return false
}

type ConfidenceLevel string

const (
	ConfidenceStrong   ConfidenceLevel = "Strong"
	ConfidenceModerate ConfidenceLevel = "Moderate"
	ConfidenceEmerging ConfidenceLevel = "Emerging"
)

type TrapLevel string

const (
	TrapNormal             TrapLevel = "normal"
	TrapElevated           TrapLevel = "elevated"
	TrapLikelyExaggeration TrapLevel = "likely_exaggeration"
)

// OptionMapping maps a trait name to the delta applied when an option is selected.
type OptionMapping map[string]float64

type Question struct {
	ID             string                   `json:"id" yaml:"id"`
	Number         int                      `json:"number" yaml:"number"`
	Text           string                   `json:"text" yaml:"text"`
	Dimension      Dimension                `json:"dimension" yaml:"dimension"`
	Type           QuestionType             `json:"type" yaml:"type"`
	IsReverse      bool                     `json:"isReverse,omitempty" yaml:"isReverse,omitempty"`
	IsTrap         bool                     `json:"isTrap,omitempty" yaml:"isTrap,omitempty"`
	Options        []string                 `json:"options,omitempty" yaml:"options,omitempty"`
	OptionMappings map[string]OptionMapping `json:"optionMappings,omitempty" yaml:"optionMappings,omitempty"`
}

// Mapping returns the trait deltas for the option selected by v. The value's own
// key is tried first; otherwise the selected option is resolved and looked up
// by label, letter and 1-based index in that order.
func (q Question) Mapping(v Value) (OptionMapping, bool) {
	if len(q.OptionMappings) == 0 {
		return nil, false
	}
	key := v.Key()
	if key == "" {
		return nil, false
	}
	if m, ok := q.OptionMappings[key]; ok {
		return m, true
	}
	i := q.OptionIndex(key)
	if i < 0 {
		return nil, false
	}
	for _, k := range []string{q.Options[i], string(rune('A' + i)), strconv.Itoa(i + 1)} {
		if m, ok := q.OptionMappings[k]; ok {
			return m, true
		}
	}
	return nil, false
}

// OptionIndex resolves a 1-based index, an option label or an option letter to
// a zero-based option index, or -1.
func (q Question) OptionIndex(key string) int {
	if n, err := strconv.Atoi(key); err == nil {
		if n >= 1 && n <= len(q.Options) {
			return n - 1
		}
		return -1
	}
	for i, label := range q.Options {
		if label == key {
			return i
		}
	}
	if len(key) == 1 {
		c := key[0] &^ 0x20
		if c >= 'A' && int(c-'A') < len(q.Options) {
			return int(c - 'A')
		}
	}
	return -1
}

type Response struct {
	QuestionID string `json:"questionId"`
	Value      Value  `json:"value"`
}

type Session struct {
	ID            string        `json:"id"`
	ApplicantID   string        `json:"applicantId"`
	ApplicantName string        `json:"applicantName,omitempty"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	StartedAt     time.Time     `json:"startedAt,omitzero"`
	CompletedAt   time.Time     `json:"completedAt,omitzero"`
}

type DimensionScores struct {
	Ownership      float64 `json:"ownership"`
	Execution      float64 `json:"execution"`
	Hustle         float64 `json:"hustle"`
	ProblemSolving float64 `json:"problemSolving"`
	Leadership     float64 `json:"leadership"`
}

// Get returns the score for a core dimension, 0 for anything else.
func (d DimensionScores) Get(dim Dimension) float64 {
	switch dim {
	case DimOwnership:
		return d.Ownership
	case DimExecution:
		return d.Execution
	case DimHustle:
		return d.Hustle
	case DimProblemSolving:
		return d.ProblemSolving
	case DimLeadership:
		return d.Leadership
	}
	return 0
}

// Add adds delta to a core dimension and reports whether dim was recognised.
func (d *DimensionScores) Add(dim Dimension, delta float64) bool {
	switch dim {
	case DimOwnership:
		d.Ownership += delta
	case DimExecution:
		d.Execution += delta
	case DimHustle:
		d.Hustle += delta
	case DimProblemSolving:
		d.ProblemSolving += delta
	case DimLeadership:
		d.Leadership += delta
	default:
		return false
	}
	return true
}

type VentureFitScores struct {
	Operator float64 `json:"operator"`
	Product  float64 `json:"product"`
	Growth   float64 `json:"growth"`
	Vision   float64 `json:"vision"`
}

// ForType returns the venture-fit score that backs an operator type.
func (v VentureFitScores) ForType(t OperatorType) float64 {
	switch t {
	case OperationalLeader:
		return v.Operator
	case ProductArchitect:
		return v.Product
	case GrowthCatalyst:
		return v.Growth
	case VisionaryBuilder:
		return v.Vision
	}
	return 0
}

type TeamDimension string

const (
	TeamWorkingStyle     TeamDimension = "workingStyle"
	TeamCommunication    TeamDimension = "communication"
	TeamConflictResponse TeamDimension = "conflictResponse"
	TeamDecisionMaking   TeamDimension = "decisionMaking"
	TeamCollaboration    TeamDimension = "collaboration"
)

var TeamDimensions = []TeamDimension{TeamWorkingStyle, TeamCommunication, TeamConflictResponse, TeamDecisionMaking, TeamCollaboration}

type TeamCompatibilityScores struct {
	WorkingStyle     float64 `json:"workingStyle"`
	Communication    float64 `json:"communication"`
	ConflictResponse float64 `json:"conflictResponse"`
	DecisionMaking   float64 `json:"decisionMaking"`
	Collaboration    float64 `json:"collaboration"`
}

func (t TeamCompatibilityScores) Get(dim TeamDimension) float64 {
	switch dim {
	case TeamWorkingStyle:
		return t.WorkingStyle
	case TeamCommunication:
		return t.Communication
	case TeamConflictResponse:
		return t.ConflictResponse
	case TeamDecisionMaking:
		return t.DecisionMaking
	case TeamCollaboration:
		return t.Collaboration
	}
	return 0
}

type StyleTraits struct {
	ActionBias       float64 `json:"action_bias"`
	DeliberationBias float64 `json:"deliberation_bias"`
	Autonomy         float64 `json:"autonomy"`
	Collaboration    float64 `json:"collaboration"`
	Direct           float64 `json:"direct"`
	Diplomatic       float64 `json:"diplomatic"`
	VisionFocus      float64 `json:"vision_focus"`
	ExecutionFocus   float64 `json:"execution_focus"`
}

// Add accumulates delta into the named trait. Unknown names are ignored.
func (s *StyleTraits) Add(trait string, delta float64) bool {
	switch trait {
	case "action_bias":
		s.ActionBias += delta
	case "deliberation_bias":
		s.DeliberationBias += delta
	case "autonomy":
		s.Autonomy += delta
	case "collaboration":
		s.Collaboration += delta
	case "direct":
		s.Direct += delta
	case "diplomatic":
		s.Diplomatic += delta
	case "vision_focus":
		s.VisionFocus += delta
	case "execution_focus":
		s.ExecutionFocus += delta
	default:
		return false
	}
	return true
}

type TrapAnalysis struct {
	Score      int       `json:"score"`
	Level      TrapLevel `json:"level"`
	ShouldFlag bool      `json:"shouldFlag"`
}

type AssessmentResult struct {
	ID                      string                  `json:"id,omitempty"`
	SessionID               string                  `json:"sessionId,omitempty"`
	ApplicantName           string                  `json:"applicantName,omitempty"`
	DimensionScores         DimensionScores         `json:"dimensionScores"`
	VentureFitScores        VentureFitScores        `json:"ventureFitScores"`
	TeamCompatibilityScores TeamCompatibilityScores `json:"teamCompatibilityScores"`
	StyleTraits             StyleTraits             `json:"styleTraits"`
	TrapAnalysis            TrapAnalysis            `json:"trapAnalysis"`
	PrimaryOperatorType     OperatorType            `json:"primaryOperatorType"`
	SecondaryOperatorType   *OperatorType           `json:"secondaryOperatorType"`
	ConfidenceLevel         ConfidenceLevel         `json:"confidenceLevel"`
	Summary                 string                  `json:"summary"`
	Strengths               []string                `json:"strengths"`
	Weaknesses              []string                `json:"weaknesses"`
	WeaknessSummary         string                  `json:"weaknessSummary"`
	CreatedAt               time.Time               `json:"createdAt,omitzero"`
}

type VentureProfile struct {
	ID                    string                   `json:"id" yaml:"id"`
	Name                  string                   `json:"name" yaml:"name"`
	Industry              string                   `json:"industry" yaml:"industry"`
	IdealOperatorType     OperatorType             `json:"idealOperatorType" yaml:"idealOperatorType"`
	SecondaryOperatorType *OperatorType            `json:"secondaryOperatorType,omitempty" yaml:"secondaryOperatorType,omitempty"`
	DimensionWeights      map[Dimension]float64    `json:"dimensionWeights,omitempty" yaml:"dimensionWeights,omitempty"`
	TeamProfile           map[TeamDimension]string `json:"teamProfile,omitempty" yaml:"teamProfile,omitempty"`
	SuggestedRoles        []string                 `json:"suggestedRoles,omitempty" yaml:"suggestedRoles,omitempty"`
	Active                bool                     `json:"active" yaml:"active"`
}

// Clone returns a copy that shares no maps, slices or pointers with v.
func (v VentureProfile) Clone() VentureProfile {
	if v.SecondaryOperatorType != nil {
		v.SecondaryOperatorType = OperatorTypePtr(*v.SecondaryOperatorType)
	}
	if v.DimensionWeights != nil {
		w := make(map[Dimension]float64, len(v.DimensionWeights))
		for k, x := range v.DimensionWeights {
			w[k] = x
		}
		v.DimensionWeights = w
	}
	if v.TeamProfile != nil {
		p := make(map[TeamDimension]string, len(v.TeamProfile))
		for k, x := range v.TeamProfile {
			p[k] = x
		}
		v.TeamProfile = p
	}
	if v.SuggestedRoles != nil {
		v.SuggestedRoles = append([]string(nil), v.SuggestedRoles...)
	}
	return v
}

type VentureMatch struct {
	ID                 string   `json:"id,omitempty"`
	ResultID           string   `json:"resultId,omitempty"`
	VentureID          string   `json:"ventureId"`
	VentureName        string   `json:"ventureName"`
	OverallScore       int      `json:"overallScore"`
	OperatorTypeScore  int      `json:"operatorTypeScore"`
	DimensionScore     int      `json:"dimensionScore"`
	CompatibilityScore int      `json:"compatibilityScore"`
	MatchReasons       []string `json:"matchReasons"`
	Concerns           []string `json:"concerns"`
	SuggestedRole      string   `json:"suggestedRole"`
}

// OperatorTypePtr is a convenience for optional operator type fields.
func OperatorTypePtr(t OperatorType) *OperatorType { return &t }
