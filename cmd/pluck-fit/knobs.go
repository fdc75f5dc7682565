package main

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-pluck/pluck"
	"github.com/cwbudde/algo-pluck/preset"
)

type knobDef struct {
	Name string
	Min  float64
	Max  float64
}

type candidate struct {
	Vals []float64
}

// parseOptimizeGroups parses a comma-separated string of group names.
// Valid groups: string, envelope, mixes.
func parseOptimizeGroups(raw string) (map[string]bool, error) {
	valid := map[string]bool{"string": true, "envelope": true, "mixes": true}
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !valid[s] {
			return nil, fmt.Errorf("unknown optimize group %q (valid: string, envelope, mixes)", s)
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no optimize groups specified")
	}
	return groups, nil
}

func initCandidate(base *preset.Settings, baseReleaseAfter float64, groups map[string]bool) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, 16)
	vals := make([]float64, 0, 16)
	addKnob := func(def knobDef, val float64) {
		defs = append(defs, def)
		vals = append(vals, val)
	}

	if groups["string"] {
		addKnob(knobDef{Name: "damping", Min: 0.9, Max: 0.99999}, float64(base.Params.Get(pluck.ParamDamping)))
		addKnob(knobDef{Name: "frequency", Min: 30, Max: 4000}, float64(base.Frequency))
	}
	if groups["envelope"] {
		addKnob(knobDef{Name: "attack", Min: 0.001, Max: 0.5}, float64(base.Params.Get(pluck.ParamAttack)))
		addKnob(knobDef{Name: "release", Min: 0.001, Max: 4.0}, float64(base.Params.Get(pluck.ParamRelease)))
		addKnob(knobDef{Name: "render.release_after", Min: 0.05, Max: 3.0}, baseReleaseAfter)
	}
	if groups["mixes"] {
		for i := 0; i <= pluck.ParamWarpMix; i++ {
			addKnob(knobDef{Name: base.Params.Name(i), Min: 0, Max: 1}, float64(base.Params.Get(i)))
		}
	}

	for i := range vals {
		vals[i] = clamp(vals[i], defs[i].Min, defs[i].Max)
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate maps knob values onto a copy of the base settings and
// returns the release-after override used when rendering the candidate.
func applyCandidate(base *preset.Settings, baseReleaseAfter float64, defs []knobDef, c candidate) (*preset.Settings, float64) {
	s := cloneSettings(base)
	releaseAfter := baseReleaseAfter

	for i, def := range defs {
		v := clamp(c.Vals[i], def.Min, def.Max)
		switch def.Name {
		case "damping":
			s.Params.Set(pluck.ParamDamping, float32(v))
		case "frequency":
			s.Frequency = float32(v)
		case "attack":
			s.Params.Set(pluck.ParamAttack, float32(v))
		case "release":
			s.Params.Set(pluck.ParamRelease, float32(v))
		case "render.release_after":
			releaseAfter = v
		default:
			if idx, ok := pluck.IndexByName(def.Name); ok && idx <= pluck.ParamWarpMix {
				s.Params.Set(idx, float32(v))
			}
		}
	}
	return s, releaseAfter
}

func cloneSettings(src *preset.Settings) *preset.Settings {
	dst := preset.NewDefaultSettings()
	if src == nil {
		return dst
	}
	for i := 0; i < pluck.NumParams; i++ {
		dst.Params.Set(i, src.Params.Get(i))
	}
	dst.Frequency = src.Frequency
	dst.Seed = src.Seed
	dst.Mode = src.Mode
	return dst
}

func cloneCandidate(c candidate) candidate {
	vals := make([]float64, len(c.Vals))
	copy(vals, c.Vals)
	return candidate{Vals: vals}
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		vals[i] = defs[i].Min + x*(defs[i].Max-defs[i].Min)
	}
	return candidate{Vals: vals}
}

func candidateFromKnobs(knobs map[string]float64, defs []knobDef, fallback candidate) candidate {
	vals := make([]float64, len(fallback.Vals))
	copy(vals, fallback.Vals)
	for i, d := range defs {
		if v, ok := knobs[d.Name]; ok {
			vals[i] = clamp(v, d.Min, d.Max)
		}
	}
	return candidate{Vals: vals}
}
