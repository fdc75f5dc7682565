package pluck

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Parameter indices. The table is fixed: ten excitation mix levels followed by
// the envelope durations and the resonator damping.
const (
	ParamWhiteMix = iota
	ParamPerlinMix
	ParamSimplexMix
	ParamValueMix
	ParamWorleyMix
	ParamFbmMix
	ParamBillowMix
	ParamRidgedMix
	ParamHybridMix
	ParamWarpMix
	ParamAttack
	ParamRelease
	ParamDamping

	NumParams
)

const (
	// minDuration floors attack/release before rate computation.
	minDuration = 0.001
	// minDamping keeps the feedback coefficient strictly positive.
	minDamping = 0.0001
)

type paramInfo struct {
	name  string
	label string
	min   float32
	max   float32
	def   float32
}

var paramTable = [NumParams]paramInfo{
	ParamWhiteMix:   {name: "white mix", label: "%", min: 0, max: 1, def: 1.0},
	ParamPerlinMix:  {name: "perlin mix", label: "%", min: 0, max: 1, def: 0},
	ParamSimplexMix: {name: "simplex mix", label: "%", min: 0, max: 1, def: 0},
	ParamValueMix:   {name: "value mix", label: "%", min: 0, max: 1, def: 0},
	ParamWorleyMix:  {name: "worley mix", label: "%", min: 0, max: 1, def: 0},
	ParamFbmMix:     {name: "fbm mix", label: "%", min: 0, max: 1, def: 0},
	ParamBillowMix:  {name: "billow mix", label: "%", min: 0, max: 1, def: 0},
	ParamRidgedMix:  {name: "ridged mix", label: "%", min: 0, max: 1, def: 0},
	ParamHybridMix:  {name: "hybrid mix", label: "%", min: 0, max: 1, def: 0},
	ParamWarpMix:    {name: "warp mix", label: "%", min: 0, max: 1, def: 0},
	ParamAttack:     {name: "attack", label: "s", min: minDuration, max: 15, def: 0.005},
	ParamRelease:    {name: "release", label: "s", min: minDuration, max: 15, def: 0.25},
	ParamDamping:    {name: "damping", label: "", min: minDamping, max: 1, def: 0.996},
}

// Params is the shared tunable-parameter store. Each parameter lives in its
// own atomic cell so a control thread can write while the audio thread reads,
// without locks and without cross-parameter consistency requirements.
type Params struct {
	cells [NumParams]atomic.Uint32
}

// NewDefaultParams creates a parameter store with every entry at its default.
func NewDefaultParams() *Params {
	p := &Params{}
	for i := 0; i < NumParams; i++ {
		p.cells[i].Store(math.Float32bits(paramTable[i].def))
	}
	return p
}

// Get returns the current value of a parameter, or 0 for an unmapped index.
func (p *Params) Get(index int) float32 {
	if index < 0 || index >= NumParams {
		return 0
	}
	return math.Float32frombits(p.cells[index].Load())
}

// Set stores a parameter value, clamped into its valid range. Unmapped
// indices are ignored.
func (p *Params) Set(index int, value float32) {
	if index < 0 || index >= NumParams {
		return
	}
	info := paramTable[index]
	if value < info.min {
		value = info.min
	}
	if value > info.max {
		value = info.max
	}
	p.cells[index].Store(math.Float32bits(value))
}

// Name returns the display name of a parameter, or "" for an unmapped index.
func (p *Params) Name(index int) string {
	if index < 0 || index >= NumParams {
		return ""
	}
	return paramTable[index].name
}

// Label returns the unit label of a parameter, or "" for an unmapped index.
func (p *Params) Label(index int) string {
	if index < 0 || index >= NumParams {
		return ""
	}
	return paramTable[index].label
}

// Text formats the current value of a parameter for display.
func (p *Params) Text(index int) string {
	if index < 0 || index >= NumParams {
		return ""
	}
	v := p.Get(index)
	switch paramTable[index].label {
	case "%":
		return fmt.Sprintf("%.1f", v*100.0)
	case "s":
		return fmt.Sprintf("%.3f", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

// IndexByName resolves a parameter name to its index. Names match the
// display names with spaces or underscores (e.g. "white mix", "white_mix").
func IndexByName(name string) (int, bool) {
	for i := 0; i < NumParams; i++ {
		if paramTable[i].name == name || underscored(paramTable[i].name) == name {
			return i, true
		}
	}
	return 0, false
}

func underscored(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] == ' ' {
			b[i] = '_'
		}
	}
	return string(b)
}

// snapshot is the engine's once-per-block read of the store. Each field is an
// independently atomic read; no multi-field consistency is needed.
type snapshot struct {
	mixes   [numSources]float32
	attack  float32
	release float32
	damping float32
}

func (p *Params) read(s *snapshot) {
	for i := 0; i < numSources; i++ {
		s.mixes[i] = p.Get(i)
	}
	s.attack = maxf(p.Get(ParamAttack), minDuration)
	s.release = maxf(p.Get(ParamRelease), minDuration)
	s.damping = p.Get(ParamDamping)
	if s.damping < minDamping {
		s.damping = minDamping
	}
	if s.damping > 1 {
		s.damping = 1
	}
}
