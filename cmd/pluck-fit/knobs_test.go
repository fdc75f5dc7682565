package main

import (
	"testing"

	"github.com/cwbudde/algo-pluck/pluck"
	"github.com/cwbudde/algo-pluck/preset"
)

func TestParseOptimizeGroups(t *testing.T) {
	groups, err := parseOptimizeGroups("string, envelope")
	if err != nil {
		t.Fatalf("valid groups rejected: %v", err)
	}
	if !groups["string"] || !groups["envelope"] || groups["mixes"] {
		t.Fatalf("unexpected group set: %v", groups)
	}

	if _, err := parseOptimizeGroups("piano"); err == nil {
		t.Fatalf("expected error for unknown group")
	}
	if _, err := parseOptimizeGroups(" , "); err == nil {
		t.Fatalf("expected error for empty group list")
	}
}

func TestInitCandidateKnobsPerGroup(t *testing.T) {
	base := preset.NewDefaultSettings()

	defs, cand := initCandidate(base, 0.5, map[string]bool{"string": true})
	if len(defs) != 2 {
		t.Fatalf("string group should expose 2 knobs, got %d", len(defs))
	}
	if defs[0].Name != "damping" || defs[1].Name != "frequency" {
		t.Fatalf("unexpected string knobs: %v", defs)
	}
	if len(cand.Vals) != len(defs) {
		t.Fatalf("candidate/defs length mismatch")
	}

	defs, _ = initCandidate(base, 0.5, map[string]bool{"mixes": true})
	if len(defs) != pluck.ParamWarpMix+1 {
		t.Fatalf("mixes group should expose one knob per source, got %d", len(defs))
	}
	for _, d := range defs {
		if d.Min != 0 || d.Max != 1 {
			t.Fatalf("mix knob %s has wrong range [%g,%g]", d.Name, d.Min, d.Max)
		}
	}
}

func TestFromNormalizedMapsBounds(t *testing.T) {
	defs := []knobDef{
		{Name: "damping", Min: 0.9, Max: 0.99999},
		{Name: "attack", Min: 0.001, Max: 0.5},
	}
	lo := fromNormalized([]float64{0, 0}, defs)
	hi := fromNormalized([]float64{1, 1}, defs)
	if lo.Vals[0] != 0.9 || lo.Vals[1] != 0.001 {
		t.Fatalf("lower bound mapping wrong: %v", lo.Vals)
	}
	if hi.Vals[0] != 0.99999 || hi.Vals[1] != 0.5 {
		t.Fatalf("upper bound mapping wrong: %v", hi.Vals)
	}
	// Out-of-range positions clamp instead of extrapolating.
	over := fromNormalized([]float64{2, -1}, defs)
	if over.Vals[0] != 0.99999 || over.Vals[1] != 0.001 {
		t.Fatalf("clamping failed: %v", over.Vals)
	}
}

func TestApplyCandidateWritesSettings(t *testing.T) {
	base := preset.NewDefaultSettings()
	groups := map[string]bool{"string": true, "envelope": true, "mixes": true}
	defs, cand := initCandidate(base, 0.5, groups)

	for i, d := range defs {
		switch d.Name {
		case "damping":
			cand.Vals[i] = 0.95
		case "frequency":
			cand.Vals[i] = 220
		case "attack":
			cand.Vals[i] = 0.02
		case "perlin mix":
			cand.Vals[i] = 0.7
		}
	}

	s, releaseAfter := applyCandidate(base, 0.5, defs, cand)
	if got := s.Params.Get(pluck.ParamDamping); got != 0.95 {
		t.Fatalf("damping not applied: %f", got)
	}
	if s.Frequency != 220 {
		t.Fatalf("frequency not applied: %f", s.Frequency)
	}
	if got := s.Params.Get(pluck.ParamAttack); got != 0.02 {
		t.Fatalf("attack not applied: %f", got)
	}
	if got := s.Params.Get(pluck.ParamPerlinMix); got != 0.7 {
		t.Fatalf("perlin mix not applied: %f", got)
	}
	if releaseAfter != 0.5 {
		t.Fatalf("release-after changed unexpectedly: %f", releaseAfter)
	}

	// The base settings stay untouched.
	if got := base.Params.Get(pluck.ParamDamping); got == 0.95 {
		t.Fatalf("base settings mutated by applyCandidate")
	}
}

func TestCandidateFromKnobsClampsToRange(t *testing.T) {
	defs := []knobDef{{Name: "damping", Min: 0.9, Max: 0.99999}}
	fallback := candidate{Vals: []float64{0.95}}
	c := candidateFromKnobs(map[string]float64{"damping": 5.0}, defs, fallback)
	if c.Vals[0] != 0.99999 {
		t.Fatalf("expected clamp to max, got %f", c.Vals[0])
	}
	c = candidateFromKnobs(map[string]float64{"unknown": 1}, defs, fallback)
	if c.Vals[0] != 0.95 {
		t.Fatalf("unknown knob should keep fallback, got %f", c.Vals[0])
	}
}
