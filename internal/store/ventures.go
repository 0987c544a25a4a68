package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joelkehle/venturefit/internal/assessment"
)

type ventureFile struct {
	Ventures []ventureEntry `yaml:"ventures"`
}

// ventureEntry defaults active to true when the key is absent.
type ventureEntry assessment.VentureProfile

func (e *ventureEntry) UnmarshalYAML(n *yaml.Node) error {
	type plain assessment.VentureProfile
	p := plain{Active: true}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*e = ventureEntry(p)
	return nil
}

// ParseVentures decodes and validates a YAML venture profile document.
func ParseVentures(data []byte) ([]assessment.VentureProfile, error) {
	var f ventureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode ventures: %w", err)
	}
	out := make([]assessment.VentureProfile, 0, len(f.Ventures))
	var errs []error
	seen := map[string]bool{}
	for _, e := range f.Ventures {
		v := assessment.VentureProfile(e)
		if err := ValidateVenture(v); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[v.ID] {
			errs = append(errs, fmt.Errorf("venture %s: duplicate id", v.ID))
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func LoadVentureFile(path string) ([]assessment.VentureProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ventures: %w", err)
	}
	return ParseVentures(data)
}

func ValidateVenture(v assessment.VentureProfile) error {
	var errs []error
	if strings.TrimSpace(v.ID) == "" {
		errs = append(errs, fmt.Errorf("venture %q: id is required", v.Name))
	}
	if strings.TrimSpace(v.Name) == "" {
		errs = append(errs, fmt.Errorf("venture %s: name is required", v.ID))
	}
	if !v.IdealOperatorType.Valid() {
		errs = append(errs, fmt.Errorf("venture %s: unknown ideal operator type %q", v.ID, v.IdealOperatorType))
	}
	if v.SecondaryOperatorType != nil && !v.SecondaryOperatorType.Valid() {
		errs = append(errs, fmt.Errorf("venture %s: unknown secondary operator type %q", v.ID, *v.SecondaryOperatorType))
	}
	for dim := range v.DimensionWeights {
		if !isCoreDimension(dim) {
			errs = append(errs, fmt.Errorf("venture %s: weight for unknown dimension %q", v.ID, dim))
		}
	}
	for dim := range v.TeamProfile {
		if !isTeamDimension(dim) {
			errs = append(errs, fmt.Errorf("venture %s: team preference for unknown dimension %q", v.ID, dim))
		}
	}
	return errors.Join(errs...)
}

func isCoreDimension(d assessment.Dimension) bool {
	for _, c := range assessment.CoreDimensions {
		if c == d {
			return true
		}
	}
	return false
}

func isTeamDimension(d assessment.TeamDimension) bool {
	for _, c := range assessment.TeamDimensions {
		if c == d {
			return true
		}
	}
	return false
}

type VentureWriter interface {
	UpsertVentureProfile(ctx context.Context, v assessment.VentureProfile) error
}

// SeedVentures writes every profile and returns how many were stored.
func SeedVentures(ctx context.Context, w VentureWriter, profiles []assessment.VentureProfile) (int, error) {
	for i, v := range profiles {
		if err := w.UpsertVentureProfile(ctx, v); err != nil {
			return i, err
		}
	}
	return len(profiles), nil
}
