package pluck

import (
	"github.com/cwbudde/algo-approx"
)

// dampingSmoothTime is the one-pole time constant used to ramp host damping
// automation, keeping the feedback gain free of zipper steps.
const dampingSmoothTime = 0.005

// Config holds construction-time engine settings. Host-automatable values
// live in Params instead; nothing here changes during steady-state
// processing.
type Config struct {
	SampleRate   int
	Channels     int
	MaxPolyphony int
	// Frequency tunes the resonator fundamental. The loop length is derived
	// from it once per sample-rate change, never per note.
	Frequency float32
	Seed      int64
	Mode      DriveMode
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Channels <= 0 {
		c.Channels = 2
	}
	if c.MaxPolyphony <= 0 {
		c.MaxPolyphony = 64
	}
	if c.Frequency <= 0 {
		c.Frequency = 440
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	return c
}

// Engine is the block processor: it owns the voice bank, the excitation
// mixer and one resonator per output channel, and renders audio blocks to
// completion on the calling thread. The parameter store is shared with the
// host-facing layer and only ever read here.
type Engine struct {
	cfg        Config
	sampleRate int
	params     *Params
	bank       *VoiceBank
	mixer      *ExcitationMixer
	resonators []*Resonator

	damping      float32
	dampingCoeff float32
	burstScratch []float32
}

// NewEngine creates an engine from host-provided configuration. The engine
// holds no reference back to the host.
func NewEngine(cfg Config, params *Params) *Engine {
	cfg = cfg.withDefaults()
	if params == nil {
		params = NewDefaultParams()
	}
	e := &Engine{
		cfg:    cfg,
		params: params,
		bank:   newVoiceBank(cfg.MaxPolyphony),
		mixer:  newExcitationMixer(cfg.SampleRate, cfg.Seed),
	}
	e.damping = params.Get(ParamDamping)
	e.SetSampleRate(cfg.SampleRate)
	return e
}

// Params returns the shared parameter store.
func (e *Engine) Params() *Params {
	return e.params
}

// SetSampleRate honors a host sample-rate notification: all time-derived
// state (excitation phase step, resonator length, smoothing coefficient) is
// rebuilt. Resonator contents are discarded since the loop length changes.
func (e *Engine) SetSampleRate(sampleRate int) {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	e.sampleRate = sampleRate
	e.mixer.setSampleRate(sampleRate)
	e.resonators = make([]*Resonator, e.cfg.Channels)
	for i := range e.resonators {
		e.resonators[i] = newResonator(sampleRate, e.cfg.Frequency)
	}
	e.burstScratch = make([]float32, e.resonators[0].period())
	e.dampingCoeff = approx.FastExp(-1.0 / (dampingSmoothTime * float32(sampleRate)))
}

// NoteOn starts a voice for the pitch. In pluck mode the resonators are also
// seeded with a one-period excitation burst, the way the original model fills
// its buffer with noise at creation.
func (e *Engine) NoteOn(pitch int) {
	if pitch < 0 || pitch > 127 {
		return
	}
	e.bank.NoteOn(pitch)
	if e.cfg.Mode == DrivePluck {
		var snap snapshot
		e.params.read(&snap)
		e.mixer.burst(e.burstScratch, pitch, &snap.mixes)
		for _, r := range e.resonators {
			r.seed(e.burstScratch)
		}
	}
}

// NoteOff releases every voice sounding the pitch.
func (e *Engine) NoteOff(pitch int) {
	e.bank.NoteOff(pitch)
}

// ActiveVoices returns the current polyphony.
func (e *Engine) ActiveVoices() int {
	return e.bank.Active()
}

// Process renders one block into the output channel buffers. All channels
// receive the same filtered sample; inputs, if any, are ignored. Parameters
// are snapshotted once per block, so a full block always runs with one set of
// envelope rates.
func (e *Engine) Process(out [][]float32) {
	if len(out) == 0 || len(out[0]) == 0 {
		return
	}
	frames := len(out[0])

	var snap snapshot
	e.params.read(&snap)
	attackRate := 1.0 / (float32(e.sampleRate) * snap.attack)
	releaseRate := 1.0 / (float32(e.sampleRate) * snap.release)

	continuous := e.cfg.Mode == DriveContinuous
	for i := 0; i < frames; i++ {
		e.bank.advance(attackRate, releaseRate)

		var excitation float32
		if continuous {
			excitation = e.mixer.sample(e.bank.voices, &snap.mixes)
		}

		e.damping = e.dampingCoeff*e.damping + (1-e.dampingCoeff)*snap.damping

		for ch, r := range e.resonators {
			s := r.process(excitation, e.damping)
			if ch < len(out) {
				out[ch][i] = s
			}
		}
	}
}

// Reset silences the engine: all voices are dropped, the resonators are
// cleared and the excitation phase rewinds.
func (e *Engine) Reset() {
	e.bank.reset()
	e.mixer.reset()
	for _, r := range e.resonators {
		r.reset()
	}
}
