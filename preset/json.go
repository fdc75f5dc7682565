package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cwbudde/algo-pluck/pluck"
)

// File is the JSON schema for pluck presets. All fields are optional; absent
// fields keep their defaults.
type File struct {
	Mixes     map[string]*float32 `json:"mixes"`
	Attack    *float32            `json:"attack"`
	Release   *float32            `json:"release"`
	Damping   *float32            `json:"damping"`
	Frequency *float32            `json:"frequency"`
	Seed      *int64              `json:"seed"`
	Mode      string              `json:"mode"`
}

// Settings bundles the shared parameter store with the construction-time
// engine configuration a preset can carry.
type Settings struct {
	Params    *pluck.Params
	Frequency float32
	Seed      int64
	Mode      pluck.DriveMode
}

// NewDefaultSettings returns settings matching an engine built with default
// configuration.
func NewDefaultSettings() *Settings {
	return &Settings{
		Params:    pluck.NewDefaultParams(),
		Frequency: 440,
		Seed:      1,
		Mode:      pluck.DriveContinuous,
	}
}

// LoadJSON loads a preset JSON file and applies it on top of defaults.
func LoadJSON(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", filepath.Base(path), err)
	}
	s := NewDefaultSettings()
	if err := ApplyFile(s, &f); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyFile applies a parsed preset file onto existing settings.
func ApplyFile(dst *Settings, f *File) error {
	if dst == nil || dst.Params == nil {
		return fmt.Errorf("nil destination settings")
	}
	if f == nil {
		return nil
	}

	keys := make([]string, 0, len(f.Mixes))
	for k := range f.Mixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := f.Mixes[k]
		if v == nil {
			continue
		}
		idx, ok := pluck.IndexByName(k)
		if !ok || idx > pluck.ParamWarpMix {
			return fmt.Errorf("unknown mix source %q", k)
		}
		if *v < 0 || *v > 1 {
			return fmt.Errorf("mixes[%s] must be in [0,1]", k)
		}
		dst.Params.Set(idx, *v)
	}

	if f.Attack != nil {
		if *f.Attack <= 0 {
			return fmt.Errorf("attack must be > 0")
		}
		dst.Params.Set(pluck.ParamAttack, *f.Attack)
	}
	if f.Release != nil {
		if *f.Release <= 0 {
			return fmt.Errorf("release must be > 0")
		}
		dst.Params.Set(pluck.ParamRelease, *f.Release)
	}
	if f.Damping != nil {
		if *f.Damping <= 0 || *f.Damping > 1 {
			return fmt.Errorf("damping must be in (0,1]")
		}
		dst.Params.Set(pluck.ParamDamping, *f.Damping)
	}
	if f.Frequency != nil {
		if *f.Frequency <= 0 {
			return fmt.Errorf("frequency must be > 0")
		}
		dst.Frequency = *f.Frequency
	}
	if f.Seed != nil {
		dst.Seed = *f.Seed
	}
	switch f.Mode {
	case "":
	case "continuous":
		dst.Mode = pluck.DriveContinuous
	case "pluck":
		dst.Mode = pluck.DrivePluck
	default:
		return fmt.Errorf("unknown drive mode %q (expected continuous or pluck)", f.Mode)
	}
	return nil
}

// FromSettings captures current settings as a preset file.
func FromSettings(s *Settings) *File {
	f := &File{Mixes: make(map[string]*float32, pluck.ParamWarpMix+1)}
	for i := 0; i <= pluck.ParamWarpMix; i++ {
		v := s.Params.Get(i)
		f.Mixes[s.Params.Name(i)] = &v
	}
	attack := s.Params.Get(pluck.ParamAttack)
	release := s.Params.Get(pluck.ParamRelease)
	damping := s.Params.Get(pluck.ParamDamping)
	freq := s.Frequency
	seed := s.Seed
	f.Attack = &attack
	f.Release = &release
	f.Damping = &damping
	f.Frequency = &freq
	f.Seed = &seed
	if s.Mode == pluck.DrivePluck {
		f.Mode = "pluck"
	} else {
		f.Mode = "continuous"
	}
	return f
}

// SaveJSON writes a preset file as indented JSON.
func SaveJSON(path string, f *File) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
