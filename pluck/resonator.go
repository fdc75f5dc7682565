package pluck

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// DriveMode selects how excitation energy enters the string loop.
type DriveMode int

const (
	// DriveContinuous sums the mixed excitation into the feedback path every
	// sample, driving the string for as long as a voice sounds.
	DriveContinuous DriveMode = iota
	// DrivePluck seeds the delay line with a one-period excitation burst at
	// note onset and lets the loop ring down on its own.
	DrivePluck
)

// Resonator is the Karplus-Strong string loop: a fixed-length circular buffer
// of past output samples. Each step replaces the oldest sample with a damped
// two-tap average of the two oldest, so energy decays exponentially at the
// fundamental set by the buffer length.
type Resonator struct {
	buffer []float32
	pos    int
}

// newResonator sizes the loop for the given fundamental. The length is fixed
// for the life of the resonator; retuning means rebuilding.
func newResonator(sampleRate int, frequency float32) *Resonator {
	if frequency < 1 {
		frequency = 1
	}
	n := int(math.Round(float64(sampleRate) / float64(frequency)))
	if n < 2 {
		n = 2
	}
	return &Resonator{buffer: make([]float32, n)}
}

// process advances the loop by one sample. The two delayed taps are read
// before the write, so the just-written sample is never consumed in the same
// step.
func (r *Resonator) process(excitation, damping float32) float32 {
	n := len(r.buffer)
	oldest := r.buffer[r.pos]
	next := r.pos + 1
	if next == n {
		next = 0
	}
	out := damping*0.5*(oldest+r.buffer[next]) + excitation
	out = float32(dspcore.FlushDenormals(float64(out)))
	r.buffer[r.pos] = out
	r.pos = next
	return out
}

// seed overwrites the loop contents with an excitation burst.
func (r *Resonator) seed(burst []float32) {
	n := len(r.buffer)
	for i := 0; i < n; i++ {
		if i < len(burst) {
			r.buffer[i] = burst[i]
		} else {
			r.buffer[i] = 0
		}
	}
	r.pos = 0
}

// reset silences the loop.
func (r *Resonator) reset() {
	for i := range r.buffer {
		r.buffer[i] = 0
	}
	r.pos = 0
}

// period returns the loop length in samples.
func (r *Resonator) period() int {
	return len(r.buffer)
}
