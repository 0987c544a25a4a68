// Package report renders a candidate report for a stored assessment result
// as Markdown, HTML or PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/venturefit/internal/assessment"
)

// Document is everything a report needs.
type Document struct {
	Result  assessment.AssessmentResult
	Matches []assessment.VentureMatch
}

const matchesHeading = "Venture Matches"

func (d Document) Title() string {
	name := strings.TrimSpace(d.Result.ApplicantName)
	if name == "" {
		return "Operator Assessment"
	}
	return "Operator Assessment: " + name
}

// Markdown lays the result out as GitHub-flavoured Markdown.
func Markdown(d Document) string {
	r := d.Result
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", d.Title())
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "_Completed %s_\n\n", r.CreatedAt.UTC().Format(time.RFC1123))
	}

	b.WriteString("## Profile\n\n")
	fmt.Fprintf(&b, "- **Primary type:** %s\n", r.PrimaryOperatorType)
	if r.SecondaryOperatorType != nil {
		fmt.Fprintf(&b, "- **Secondary type:** %s\n", *r.SecondaryOperatorType)
	}
	fmt.Fprintf(&b, "- **Confidence:** %s\n\n", r.ConfidenceLevel)
	if r.Summary != "" {
		b.WriteString(escape(r.Summary) + "\n\n")
	}

	b.WriteString("## Dimension Scores\n\n| Dimension | Score |\n|---|---:|\n")
	for _, dim := range assessment.CoreDimensions {
		fmt.Fprintf(&b, "| %s | %.0f |\n", dimensionLabel(dim), r.DimensionScores.Get(dim))
	}

	b.WriteString("\n## Venture Fit\n\n| Operator type | Fit (1-5) |\n|---|---:|\n")
	for _, t := range assessment.OperatorTypes {
		fmt.Fprintf(&b, "| %s | %.2f |\n", t, r.VentureFitScores.ForType(t))
	}

	b.WriteString("\n## Team Compatibility\n\n| Area | Score (1-5) |\n|---|---:|\n")
	for _, dim := range assessment.TeamDimensions {
		fmt.Fprintf(&b, "| %s | %.1f |\n", teamLabel(dim), r.TeamCompatibilityScores.Get(dim))
	}

	writeList(&b, "Strengths", r.Strengths)
	writeList(&b, "Development Areas", r.Weaknesses)
	if r.WeaknessSummary != "" {
		b.WriteString(escape(r.WeaknessSummary) + "\n")
	}

	b.WriteString("\n## Response Reliability\n\n")
	fmt.Fprintf(&b, "Honesty check score %d (%s).", r.TrapAnalysis.Score, r.TrapAnalysis.Level)
	if r.TrapAnalysis.ShouldFlag {
		b.WriteString(" Self-ratings may be inflated; verify in interview.")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "\n## %s\n\n", matchesHeading)
	if len(d.Matches) == 0 {
		b.WriteString("No active ventures were available for matching.\n")
		return b.String()
	}
	b.WriteString("| Venture | Overall | Operator | Dimensions | Team | Suggested role |\n|---|---:|---:|---:|---:|---|\n")
	for _, m := range d.Matches {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %s |\n",
			escape(m.VentureName), m.OverallScore, m.OperatorTypeScore, m.DimensionScore, m.CompatibilityScore, escape(m.SuggestedRole))
	}
	for _, m := range d.Matches {
		fmt.Fprintf(&b, "\n### %s\n\n", escape(m.VentureName))
		for _, reason := range m.MatchReasons {
			b.WriteString("- " + escape(reason) + "\n")
		}
		for _, c := range m.Concerns {
			b.WriteString("- **Concern:** " + escape(c) + "\n")
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", heading)
	for _, it := range items {
		b.WriteString("- " + escape(it) + "\n")
	}
	b.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "<", "&lt;", ">", "&gt;")

func escape(s string) string { return markdownEscaper.Replace(s) }

func dimensionLabel(d assessment.Dimension) string {
	switch d {
	case assessment.DimProblemSolving:
		return "Problem Solving"
	default:
		s := string(d)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

func teamLabel(d assessment.TeamDimension) string {
	var b strings.Builder
	for i, r := range string(d) {
		if i == 0 {
			b.WriteString(strings.ToUpper(string(r)))
			continue
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
