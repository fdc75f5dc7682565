package pluck

// Voice is one sounding instance of a note. Its envelope ramps 0→1 while the
// key is held and 1→0 after release; the voice is retired once the envelope
// reaches zero.
type Voice struct {
	pitch    int
	envelope float32
	released bool
}

// VoiceBank owns the set of active voices. Only NoteOn, NoteOff and advance
// mutate the set. Voices are stored by value in a preallocated slice so the
// per-sample advance never allocates.
type VoiceBank struct {
	voices []Voice
}

func newVoiceBank(capacity int) *VoiceBank {
	if capacity < 1 {
		capacity = 1
	}
	return &VoiceBank{voices: make([]Voice, 0, capacity)}
}

// NoteOn starts a new voice. A repeated pitch overlaps with the existing
// voice rather than retriggering it.
func (b *VoiceBank) NoteOn(pitch int) {
	if pitch < 0 || pitch > 127 {
		return
	}
	b.voices = append(b.voices, Voice{pitch: pitch})
}

// NoteOff releases every active voice with the given pitch.
func (b *VoiceBank) NoteOff(pitch int) {
	for i := range b.voices {
		if b.voices[i].pitch == pitch {
			b.voices[i].released = true
		}
	}
}

// advance applies one sample of envelope movement to every voice and compacts
// finished voices out of the set in place. Release takes precedence over
// attack once set.
func (b *VoiceBank) advance(attackRate, releaseRate float32) {
	keep := b.voices[:0]
	for i := range b.voices {
		v := b.voices[i]
		if v.released {
			v.envelope -= releaseRate
		} else if v.envelope < 1 {
			v.envelope += attackRate
			if v.envelope > 1 {
				v.envelope = 1
			}
		}
		if v.envelope <= 0 {
			continue
		}
		keep = append(keep, v)
	}
	b.voices = keep
}

// Active returns the number of live voices.
func (b *VoiceBank) Active() int {
	return len(b.voices)
}

func (b *VoiceBank) reset() {
	b.voices = b.voices[:0]
}
