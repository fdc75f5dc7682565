package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func decayingTone(sampleRate int, freq, decayPerSec float64, seconds float64, seed int64) []float64 {
	n := int(float64(sampleRate) * seconds)
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		env := math.Exp(-decayPerSec * t)
		out[i] = env * (math.Sin(2*math.Pi*freq*t) + 0.05*(rng.Float64()*2-1))
	}
	return out
}

func TestCompareIdenticalSignals(t *testing.T) {
	x := decayingTone(22050, 440, 4, 1.0, 1)
	m := Compare(x, x, 22050)
	if m.LagSamples != 0 {
		t.Fatalf("identical signals should align at lag 0, got %d", m.LagSamples)
	}
	if m.TimeRMSE > 1e-9 {
		t.Fatalf("identical signals should have zero time RMSE, got %g", m.TimeRMSE)
	}
	if m.Score > 0.01 {
		t.Fatalf("identical signals should score near 0, got %f", m.Score)
	}
	if m.Similarity < 0.95 {
		t.Fatalf("identical signals should be near-fully similar, got %f", m.Similarity)
	}
}

func TestCompareRecoversOnsetLag(t *testing.T) {
	const sr = 22050
	x := decayingTone(sr, 330, 5, 1.0, 2)
	shift := 700
	shifted := make([]float64, shift+len(x))
	// A tiny DC pedestal keeps the silence trimmer from removing the shift.
	for i := 0; i < shift; i++ {
		shifted[i] = 2e-6
	}
	copy(shifted[shift:], x)

	m := Compare(x, shifted, sr)
	if d := m.LagSamples - shift; d < -2 || d > 2 {
		t.Fatalf("lag estimate %d, want ~%d", m.LagSamples, shift)
	}
	if m.TimeRMSE > 0.01 {
		t.Fatalf("aligned copy should nearly cancel, time RMSE %g", m.TimeRMSE)
	}
}

func TestCompareSeparatesDecayRates(t *testing.T) {
	const sr = 22050
	ref := decayingTone(sr, 440, 3, 1.5, 3)
	close := decayingTone(sr, 440, 3.5, 1.5, 3)
	far := decayingTone(sr, 440, 25, 1.5, 3)

	mClose := Compare(ref, close, sr)
	mFar := Compare(ref, far, sr)
	if mClose.Score >= mFar.Score {
		t.Fatalf("similar decay should score better: close=%f far=%f", mClose.Score, mFar.Score)
	}
	if mFar.DecayDiffDBPerS <= mClose.DecayDiffDBPerS {
		t.Fatalf("decay difference not reflected: close=%f far=%f",
			mClose.DecayDiffDBPerS, mFar.DecayDiffDBPerS)
	}
}

func TestCompareDegenerateInputs(t *testing.T) {
	x := decayingTone(22050, 440, 4, 0.5, 4)
	cases := []struct {
		name       string
		ref, cand  []float64
		sampleRate int
	}{
		{"empty reference", nil, x, 22050},
		{"empty candidate", x, nil, 22050},
		{"zero sample rate", x, x, 0},
		{"all silence", make([]float64, 8192), x, 22050},
	}
	for _, tc := range cases {
		m := Compare(tc.ref, tc.cand, tc.sampleRate)
		if m.Score != 1.0 || m.Similarity != 0.0 {
			t.Fatalf("%s: expected worst score, got score=%f similarity=%f",
				tc.name, m.Score, m.Similarity)
		}
	}
}

func TestDecaySlopeMatchesConstruction(t *testing.T) {
	const sr = 22050
	// 6 dB/s amplitude decay: 20*log10(e^(-k*t)) with k = 6/(20*log10(e)).
	k := 6.0 / (20.0 * math.Log10(math.E))
	x := decayingTone(sr, 440, k, 2.0, 5)
	env := rmsEnvelope(x, envFrame, envHop)
	slope := decaySlopeDBPerS(env, float64(envHop)/float64(sr))
	if math.IsNaN(slope) {
		t.Fatalf("slope fit failed on a clean decay")
	}
	if slope > -4.0 || slope < -8.0 {
		t.Fatalf("slope %f dB/s, want about -6", slope)
	}
}
