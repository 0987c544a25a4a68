package store

import (
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"github.com/joelkehle/venturefit/internal/assessment"
)

// ErrExists is returned when creating a row whose id is already taken.
var ErrExists = errors.New("already exists")

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func stringToTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func cloneResult(r assessment.AssessmentResult) assessment.AssessmentResult {
	r.Strengths = cloneStrings(r.Strengths)
	r.Weaknesses = cloneStrings(r.Weaknesses)
	if r.SecondaryOperatorType != nil {
		r.SecondaryOperatorType = assessment.OperatorTypePtr(*r.SecondaryOperatorType)
	}
	return r
}

func cloneMatch(m assessment.VentureMatch) assessment.VentureMatch {
	m.MatchReasons = cloneStrings(m.MatchReasons)
	m.Concerns = cloneStrings(m.Concerns)
	return m
}

func cloneVenture(v assessment.VentureProfile) assessment.VentureProfile {
	return v.Clone()
}
