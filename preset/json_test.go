package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-pluck/pluck"
)

func TestApplyFilePartialOverride(t *testing.T) {
	s := NewDefaultSettings()
	damping := float32(0.9)
	fbm := float32(0.4)
	f := &File{
		Damping: &damping,
		Mixes:   map[string]*float32{"fbm_mix": &fbm},
	}
	if err := ApplyFile(s, f); err != nil {
		t.Fatalf("ApplyFile failed: %v", err)
	}
	if got := s.Params.Get(pluck.ParamDamping); got != 0.9 {
		t.Fatalf("damping override lost: %f", got)
	}
	if got := s.Params.Get(pluck.ParamFbmMix); got != 0.4 {
		t.Fatalf("fbm mix override lost: %f", got)
	}
	// Untouched fields keep their defaults.
	if got := s.Params.Get(pluck.ParamWhiteMix); got != 1.0 {
		t.Fatalf("white mix default lost: %f", got)
	}
	if s.Frequency != 440 || s.Mode != pluck.DriveContinuous {
		t.Fatalf("construction settings changed unexpectedly")
	}
}

func TestApplyFileRejectsInvalidValues(t *testing.T) {
	bad := []File{
		{Damping: f32(0)},
		{Damping: f32(1.5)},
		{Attack: f32(-1)},
		{Release: f32(0)},
		{Frequency: f32(0)},
		{Mode: "granular"},
		{Mixes: map[string]*float32{"white_mix": f32(2)}},
		{Mixes: map[string]*float32{"attack": f32(0.5)}},
		{Mixes: map[string]*float32{"no such source": f32(0.5)}},
	}
	for i := range bad {
		if err := ApplyFile(NewDefaultSettings(), &bad[i]); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestLoadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.json")

	s := NewDefaultSettings()
	s.Params.Set(pluck.ParamWorleyMix, 0.25)
	s.Params.Set(pluck.ParamRelease, 1.5)
	s.Frequency = 220
	s.Seed = 99
	s.Mode = pluck.DrivePluck
	if err := SaveJSON(path, FromSettings(s)); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	loaded, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if got := loaded.Params.Get(pluck.ParamWorleyMix); got != 0.25 {
		t.Fatalf("worley mix round-trip: %f", got)
	}
	if got := loaded.Params.Get(pluck.ParamRelease); got != 1.5 {
		t.Fatalf("release round-trip: %f", got)
	}
	if loaded.Frequency != 220 || loaded.Seed != 99 || loaded.Mode != pluck.DrivePluck {
		t.Fatalf("settings round-trip: freq=%f seed=%d mode=%v", loaded.Frequency, loaded.Seed, loaded.Mode)
	}
}

func TestLoadJSONRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func f32(v float32) *float32 { return &v }
