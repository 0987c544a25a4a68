package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joelkehle/venturefit/internal/assessment"
)

const sampleVentures = `ventures:
  - id: v-ops
    name: FleetOps
    idealOperatorType: Operational Leader
    secondaryOperatorType: Growth Catalyst
    dimensionWeights: {execution: 0.6, ownership: 0.4}
    teamProfile: {workingStyle: high}
    suggestedRoles: [COO]
  - id: v-old
    name: Retired
    idealOperatorType: Product Architect
    active: false
`

func TestParseVenturesDefaultsActive(t *testing.T) {
	vs, err := ParseVentures([]byte(sampleVentures))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(vs) != 2 {
		t.Fatalf("expected 2 ventures, got %d", len(vs))
	}
	if !vs[0].Active || vs[1].Active {
		t.Fatalf("unexpected active flags: %v %v", vs[0].Active, vs[1].Active)
	}
	if vs[0].SecondaryOperatorType == nil || *vs[0].SecondaryOperatorType != assessment.GrowthCatalyst {
		t.Fatalf("secondary type not decoded: %+v", vs[0].SecondaryOperatorType)
	}
	if vs[0].DimensionWeights[assessment.DimExecution] != 0.6 {
		t.Fatalf("weights not decoded: %+v", vs[0].DimensionWeights)
	}
}

func TestParseVenturesRejectsInvalid(t *testing.T) {
	bad := `ventures:
  - id: v-1
    name: One
    idealOperatorType: Astronaut
  - id: v-2
    name: Two
    idealOperatorType: Growth Catalyst
    dimensionWeights: {charisma: 1}
  - id: v-3
    name: Three
    idealOperatorType: Growth Catalyst
  - id: v-3
    name: Three again
    idealOperatorType: Growth Catalyst
`
	_, err := ParseVentures([]byte(bad))
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"Astronaut", "charisma", "duplicate id"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestSeedVenturesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ventures.yaml")
	if err := os.WriteFile(path, []byte(sampleVentures), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	vs, err := LoadVentureFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, _ := testConfig()
	s := NewMemoryStore(cfg)
	ctx := context.Background()

	n, err := SeedVentures(ctx, s, vs)
	if err != nil || n != 2 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	// Seeding again updates in place.
	if _, err := SeedVentures(ctx, s, vs); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	active, err := s.ListActiveVentures(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != "v-ops" {
		t.Fatalf("unexpected active ventures: %+v", active)
	}
	all, _ := s.ListVentureProfiles(ctx, false)
	if len(all) != 2 {
		t.Fatalf("expected 2 stored profiles, got %d", len(all))
	}

	if _, err := LoadVentureFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
