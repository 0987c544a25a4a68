package scoring

import (
	"fmt"
	"strings"

	"github.com/joelkehle/venturefit/internal/assessment"
)

const defaultApplicantName = "This candidate"

// TrapCaveat is appended to the summary when the honesty check flags a result.
const TrapCaveat = "Note: responses to the self-assessment consistency items were unusually favorable. Validate the strengths below in a structured interview before relying on them."

type narrativeEntry struct {
	summary         string // %s = applicant name
	strengths       []string
	weaknesses      []string
	weaknessSummary string
}

var narratives = map[assessment.OperatorType]narrativeEntry{
	assessment.OperationalLeader: {
		summary: "%s is an Operational Leader: someone who turns plans into predictable results through structure, follow-through and accountability.",
		strengths: []string{
			"Builds reliable systems and processes that scale beyond individual effort",
			"Holds self and others accountable to commitments and deadlines",
			"Brings calm and order to ambiguous, fast-moving environments",
			"Tracks details across parallel workstreams without dropping threads",
			"Makes resource trade-offs with a clear view of cost and impact",
		},
		weaknesses: []string{
			"May over-engineer process for work that only happens once",
			"Can be slow to embrace bets that lack a clear operating plan",
			"May default to control when the team needs room to experiment",
			"Can underinvest in the external storytelling a young venture needs",
		},
		weaknessSummary: "Pair with a partner who pushes for speed and experimentation, and agree early on where process is optional.",
	},
	assessment.ProductArchitect: {
		summary: "%s is a Product Architect: someone who designs the offering itself, reasoning from customer problems to a coherent product.",
		strengths: []string{
			"Translates messy customer needs into clear product requirements",
			"Thinks in systems and spots structural problems early",
			"Balances user value against build cost when scoping work",
			"Raises the quality bar for what the venture ships",
		},
		weaknesses: []string{
			"May keep refining when the market needs a version now",
			"Can be less energized by selling and fundraising",
			"May underweight operational scale-up once the product works",
			"Can hold too tightly to a design when evidence points elsewhere",
		},
		weaknessSummary: "Works best with a commercially driven counterpart and explicit ship dates that force trade-offs.",
	},
	assessment.GrowthCatalyst: {
		summary: "%s is a Growth Catalyst: someone who creates momentum through customers, partners and relentless outreach.",
		strengths: []string{
			"Opens doors and builds relationships quickly",
			"Thrives on rejection and keeps pipeline moving",
			"Finds unconventional channels and early revenue",
			"Energizes teams and external stakeholders around the venture",
			"Moves decisively on opportunities with incomplete information",
		},
		weaknesses: []string{
			"May commit to customers before delivery capacity exists",
			"Can lose interest once growth requires routine execution",
			"May trade long-term positioning for short-term wins",
			"Can leave documentation and follow-through to others",
		},
		weaknessSummary: "Needs an execution-minded partner and clear guardrails on what can be promised to customers.",
	},
	assessment.VisionaryBuilder: {
		summary: "%s is a Visionary Builder: someone who sees where a market is going and rallies people around building toward it.",
		strengths: []string{
			"Articulates a compelling long-term direction",
			"Spots category-level opportunities others miss",
			"Attracts talent and partners to an ambitious idea",
			"Comfortable making bold bets under uncertainty",
		},
		weaknesses: []string{
			"May move on to the next idea before the current one is proven",
			"Can find day-to-day operations draining",
			"May set timelines that outpace the team's capacity",
			"Can underweight near-term metrics in favor of the big picture",
		},
		weaknessSummary: "Benefits most from a strong operator who converts vision into a weekly plan and protects focus.",
	},
}

// Narrative is the templated text attached to a result.
type Narrative struct {
	Summary         string
	Strengths       []string
	Weaknesses      []string
	WeaknessSummary string
}

// Narrate selects the text for an operator type and fills in the applicant's
// name. The secondary type and trap caveat only change the summary.
func Narrate(applicantName string, primary assessment.OperatorType, secondary *assessment.OperatorType, trap assessment.TrapAnalysis) Narrative {
	entry, ok := narratives[primary]
	if !ok {
		entry = narratives[assessment.OperationalLeader]
	}
	name := strings.TrimSpace(applicantName)
	if name == "" {
		name = defaultApplicantName
	}

	var b strings.Builder
	fmt.Fprintf(&b, entry.summary, name)
	if secondary != nil {
		fmt.Fprintf(&b, " They also show strong %s tendencies.", *secondary)
	}
	if trap.ShouldFlag {
		b.WriteString(" ")
		b.WriteString(TrapCaveat)
	}

	return Narrative{
		Summary:         b.String(),
		Strengths:       append([]string(nil), entry.strengths...),
		Weaknesses:      append([]string(nil), entry.weaknesses...),
		WeaknessSummary: entry.weaknessSummary,
	}
}
