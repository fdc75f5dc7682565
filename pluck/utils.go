package pluck

import "math"

// pitchToFreq converts a MIDI-style pitch number to frequency in Hz using the
// 12-tone equal-tempered mapping referenced to A4 = 440 Hz at pitch 69.
func pitchToFreq(pitch int) float64 {
	const a4Freq = 440.0
	const a4Pitch = 69
	return a4Freq * math.Exp2(float64(pitch-a4Pitch)/12.0)
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
