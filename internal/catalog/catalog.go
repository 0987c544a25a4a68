// Package catalog holds the assessment question set and checks that it agrees
// with the scoring tables.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joelkehle/venturefit/internal/assessment"
	"github.com/joelkehle/venturefit/internal/scoring"
)

//go:embed questions.yaml
var embeddedQuestions []byte

// Size is the number of questions a complete catalog carries.
const Size = 70

type file struct {
	Version   int                   `yaml:"version"`
	Questions []assessment.Question `yaml:"questions"`
}

// Catalog is an immutable, validated question set ordered by number.
type Catalog struct {
	version   int
	questions []assessment.Question
	byID      map[string]int
}

// New validates questions and returns them as a catalog sorted by number.
func New(version int, questions []assessment.Question) (*Catalog, error) {
	qs := append([]assessment.Question(nil), questions...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Number < qs[j].Number })
	if err := Validate(qs); err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(qs))
	for i, q := range qs {
		byID[q.ID] = i
	}
	return &Catalog{version: version, questions: qs, byID: byID}, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f.Version, f.Questions)
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(embeddedQuestions)
}

func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load returns the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

func (c *Catalog) Version() int { return c.version }

func (c *Catalog) Len() int { return len(c.questions) }

// ListActive returns a copy of the questions ordered by number.
func (c *Catalog) ListActive(context.Context) ([]assessment.Question, error) {
	return c.Questions(), nil
}

func (c *Catalog) Questions() []assessment.Question {
	return append([]assessment.Question(nil), c.questions...)
}

func (c *Catalog) Lookup(id string) (assessment.Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return assessment.Question{}, false
	}
	return c.questions[i], true
}

// Validate checks a number-ordered question list against the scoring tables.
// All problems are reported together.
func Validate(qs []assessment.Question) error {
	var errs []error
	if len(qs) != Size {
		errs = append(errs, fmt.Errorf("catalog has %d questions, want %d", len(qs), Size))
	}
	ids := make(map[string]bool, len(qs))
	numbers := make(map[int]bool, len(qs))
	for _, q := range qs {
		if strings.TrimSpace(q.ID) == "" {
			errs = append(errs, fmt.Errorf("question %d: id is required", q.Number))
		} else if ids[q.ID] {
			errs = append(errs, fmt.Errorf("question %s: duplicate id", q.ID))
		}
		ids[q.ID] = true
		if q.Number < 1 || q.Number > Size {
			errs = append(errs, fmt.Errorf("question %s: number %d outside 1-%d", q.ID, q.Number, Size))
		} else if numbers[q.Number] {
			errs = append(errs, fmt.Errorf("question %s: duplicate number %d", q.ID, q.Number))
		}
		numbers[q.Number] = true
		if err := validateQuestion(q); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validateQuestion(q assessment.Question) error {
	var errs []error
	bucket := scoring.BucketFor(q.Number)
	switch {
	case bucket == assessment.DimTrap:
		if !q.IsTrap || q.Type != assessment.TypeLikert {
			errs = append(errs, fmt.Errorf("question %s: number %d must be a likert trap item", q.ID, q.Number))
		}
	case bucket != "":
		if q.Dimension != bucket {
			errs = append(errs, fmt.Errorf("question %s: dimension %q, want %q", q.ID, q.Dimension, bucket))
		}
		if q.Type != assessment.TypeLikert {
			errs = append(errs, fmt.Errorf("question %s: number %d must be likert", q.ID, q.Number))
		}
	case q.Type == assessment.TypeForcedChoice:
		if q.Dimension != assessment.DimStyle {
			errs = append(errs, fmt.Errorf("question %s: forced-choice dimension must be %q", q.ID, assessment.DimStyle))
		}
	case q.Type == assessment.TypeScenario:
		if q.Dimension != assessment.DimScenario {
			errs = append(errs, fmt.Errorf("question %s: scenario dimension must be %q", q.ID, assessment.DimScenario))
		}
	default:
		errs = append(errs, fmt.Errorf("question %s: number %d has no scoring bucket for type %q", q.ID, q.Number, q.Type))
	}
	if q.IsTrap && bucket != assessment.DimTrap {
		errs = append(errs, fmt.Errorf("question %s: only numbers 37-40 may be trap items", q.ID))
	}
	if q.IsReverse && q.Type != assessment.TypeLikert {
		errs = append(errs, fmt.Errorf("question %s: isReverse only applies to likert", q.ID))
	}

	switch q.Type {
	case assessment.TypeForcedChoice, assessment.TypeScenario:
		if len(q.Options) < 2 {
			errs = append(errs, fmt.Errorf("question %s: needs at least 2 options", q.ID))
		}
		for key := range q.OptionMappings {
			if q.OptionIndex(key) < 0 {
				errs = append(errs, fmt.Errorf("question %s: mapping key %q matches no option", q.ID, key))
			}
		}
	case assessment.TypeLikert:
		if len(q.OptionMappings) > 0 {
			errs = append(errs, fmt.Errorf("question %s: likert items take no option mappings", q.ID))
		}
	}
	return errors.Join(errs...)
}

// CheckValue rejects answers whose shape does not fit the question type.
func CheckValue(q assessment.Question, v assessment.Value) error {
	if v.IsZero() {
		return assessment.NewValidationError("question %s: value is required", q.ID)
	}
	n, numeric := v.Int()
	switch q.Type {
	case assessment.TypeLikert:
		if !numeric || n < 1 || n > 5 {
			return assessment.NewValidationError("question %s: likert value must be 1-5, got %s", q.ID, v)
		}
	case assessment.TypeScenario:
		if !numeric || n < 1 || n > len(q.Options) {
			return assessment.NewValidationError("question %s: scenario value must be 1-%d, got %s", q.ID, len(q.Options), v)
		}
	case assessment.TypeForcedChoice:
		if numeric || q.OptionIndex(v.Key()) < 0 {
			return assessment.NewValidationError("question %s: choice must be one of %s, got %s", q.ID, strings.Join(q.Options, ", "), v)
		}
	}
	return nil
}
