package pluck

import (
	"math"
	"math/rand"
	"testing"
)

func TestResonatorLengthFromFrequency(t *testing.T) {
	cases := []struct {
		sampleRate int
		freq       float32
		period     int
	}{
		{44100, 440, 100},
		{44100, 441, 100},
		{48000, 440, 109},
		{4400, 440, 10},
	}
	for _, tc := range cases {
		r := newResonator(tc.sampleRate, tc.freq)
		if r.period() != tc.period {
			t.Fatalf("sr=%d f=%g: period %d, want %d", tc.sampleRate, tc.freq, r.period(), tc.period)
		}
	}
}

func TestResonatorTwoTapAverage(t *testing.T) {
	r := &Resonator{buffer: []float32{1.0, 0.0}}
	if s := r.process(0, 1.0); s != 0.5 {
		t.Fatalf("expected damped two-tap average 0.5, got %f", s)
	}
	// The new sample replaces the consumed oldest one.
	if r.buffer[0] != 0.5 {
		t.Fatalf("expected loop write-back, buffer=%v", r.buffer)
	}
}

func TestResonatorDampingScalesFeedback(t *testing.T) {
	r := &Resonator{buffer: []float32{1.0, 1.0, 1.0}}
	if s := r.process(0, 0.5); s != 0.5 {
		t.Fatalf("expected 0.5 * avg(1,1) = 0.5, got %f", s)
	}
}

func TestResonatorEnergyPlateausAtUnityDamping(t *testing.T) {
	r := newResonator(44100, 440)
	rng := rand.New(rand.NewSource(123))
	seedBurst := make([]float32, r.period())
	peak := 0.0
	for i := range seedBurst {
		seedBurst[i] = float32(rng.Float64()*2.0 - 1.0)
		if a := math.Abs(float64(seedBurst[i])); a > peak {
			peak = a
		}
	}
	r.seed(seedBurst)

	// The averaging loop is non-expanding: no output sample may ever exceed
	// the seeded peak, and window energy must not grow.
	period := r.period()
	first := 0.0
	last := 0.0
	for w := 0; w < 50; w++ {
		var sum float64
		for i := 0; i < period; i++ {
			s := float64(r.process(0, 1.0))
			if math.Abs(s) > peak+1e-6 {
				t.Fatalf("feedback grew beyond the seed peak: |%f| > %f", s, peak)
			}
			sum += s * s
		}
		rms := math.Sqrt(sum / float64(period))
		if w == 0 {
			first = rms
		}
		last = rms
	}
	if last > first*1.01 {
		t.Fatalf("energy grew across windows: first=%f last=%f", first, last)
	}
}

func TestResonatorDecaysBelowUnityDamping(t *testing.T) {
	r := newResonator(44100, 220)
	seedBurst := make([]float32, r.period())
	rng := rand.New(rand.NewSource(77))
	for i := range seedBurst {
		seedBurst[i] = float32(rng.Float64()*2.0 - 1.0)
	}
	r.seed(seedBurst)

	period := r.period()
	window := func() float64 {
		var sum float64
		for i := 0; i < period; i++ {
			s := float64(r.process(0, 0.98))
			sum += s * s
		}
		return math.Sqrt(sum / float64(period))
	}
	early := window()
	for w := 0; w < 60; w++ {
		window()
	}
	late := window()
	if late > early*0.5 {
		t.Fatalf("expected clear decay at damping 0.98: early=%f late=%f", early, late)
	}
}

func TestResonatorSeedAndReset(t *testing.T) {
	r := newResonator(44100, 440)
	r.seed([]float32{1, 2, 3})
	if r.buffer[0] != 1 || r.buffer[1] != 2 || r.buffer[2] != 3 || r.buffer[3] != 0 {
		t.Fatalf("seed mismatch: %v", r.buffer[:4])
	}
	r.reset()
	for i, s := range r.buffer {
		if s != 0 {
			t.Fatalf("reset left energy at index %d: %f", i, s)
		}
	}
}

func TestResonatorSilentWithoutExcitation(t *testing.T) {
	r := newResonator(44100, 440)
	for i := 0; i < 1000; i++ {
		if s := r.process(0, 1.0); s != 0 {
			t.Fatalf("zero-state loop produced output: %f", s)
		}
	}
}
