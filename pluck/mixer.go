package pluck

// activityThreshold gates excitation for voices whose envelope is effectively
// silent.
const activityThreshold = 1e-4

// ExcitationMixer combines the white-noise source and the coherent noise
// fields into one excitation scalar per sample. Each coherent field is
// evaluated at (0, t*f0) where t is the accumulated excitation time and f0
// the voice's fundamental; t only advances while a voice is sounding, so the
// field phase holds still through silence.
type ExcitationMixer struct {
	fields *fieldSet
	dt     float64
	time   float64
}

func newExcitationMixer(sampleRate int, seed int64) *ExcitationMixer {
	m := &ExcitationMixer{fields: newFieldSet(seed)}
	m.setSampleRate(sampleRate)
	return m
}

func (m *ExcitationMixer) setSampleRate(sampleRate int) {
	if sampleRate < 1 {
		sampleRate = 1
	}
	m.dt = 1.0 / float64(sampleRate)
}

// sample mixes one excitation value from the live voices. Sources with a zero
// mix level are skipped entirely rather than evaluated and discarded.
func (m *ExcitationMixer) sample(voices []Voice, mixes *[numSources]float32) float32 {
	if len(voices) == 0 {
		return 0
	}
	var sum float32
	for i := range voices {
		v := &voices[i]
		if v.envelope <= activityThreshold {
			continue
		}
		y := m.time * pitchToFreq(v.pitch)
		for kind := 0; kind < numSources; kind++ {
			mix := mixes[kind]
			if mix == 0 {
				continue
			}
			var s float32
			if kind == srcWhite {
				s = m.fields.white()
			} else {
				s = m.fields.eval(kind, 0, y)
			}
			sum += mix * v.envelope * s
		}
	}
	m.time += m.dt
	return sum
}

// burst renders a one-period excitation buffer at full envelope, used to seed
// the resonator in pluck mode.
func (m *ExcitationMixer) burst(dst []float32, pitch int, mixes *[numSources]float32) {
	f0 := pitchToFreq(pitch)
	for i := range dst {
		y := (m.time + float64(i)*m.dt) * f0
		var sum float32
		for kind := 0; kind < numSources; kind++ {
			mix := mixes[kind]
			if mix == 0 {
				continue
			}
			var s float32
			if kind == srcWhite {
				s = m.fields.white()
			} else {
				s = m.fields.eval(kind, 0, y)
			}
			sum += mix * s
		}
		dst[i] = sum
	}
}

func (m *ExcitationMixer) reset() {
	m.time = 0
}
