// Command pluck-live runs the synth against the system audio output with a
// small readline console for note and parameter control.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-pluck/pluck"
	"github.com/cwbudde/algo-pluck/preset"
)

const numChannels = 2

type noteEvent struct {
	pitch int
	off   bool
}

// streamer feeds the engine into oto. Note events are queued under a mutex
// and drained at the start of each Read so the audio callback never blocks
// on the console goroutine. Parameter changes bypass the queue entirely and
// go through the lock-free parameter store.
type streamer struct {
	engine *pluck.Engine

	mu      sync.Mutex
	pending []noteEvent

	planar [][]float32
}

func newStreamer(engine *pluck.Engine) *streamer {
	planar := make([][]float32, numChannels)
	for ch := range planar {
		planar[ch] = make([]float32, 1024)
	}
	return &streamer{engine: engine, planar: planar}
}

func (s *streamer) enqueue(ev noteEvent) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
}

func (s *streamer) Read(p []byte) (int, error) {
	const bytesPerFrame = numChannels * 4
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}

	s.mu.Lock()
	events := s.pending
	s.pending = s.pending[:0]
	for _, ev := range events {
		if ev.off {
			s.engine.NoteOff(ev.pitch)
		} else {
			s.engine.NoteOn(ev.pitch)
		}
	}
	s.mu.Unlock()

	if len(s.planar[0]) < frames {
		for ch := range s.planar {
			s.planar[ch] = make([]float32, frames)
		}
	}
	block := make([][]float32, numChannels)
	for ch := range block {
		block[ch] = s.planar[ch][:frames]
	}
	s.engine.Process(block)

	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			off := (i*numChannels + ch) * 4
			binary.LittleEndian.PutUint32(p[off:], math.Float32bits(block[ch][i]))
		}
	}
	return frames * bytesPerFrame, nil
}

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Playback sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	flag.Parse()

	settings := preset.NewDefaultSettings()
	if *presetPath != "" {
		var err error
		settings, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}

	engine := pluck.NewEngine(pluck.Config{
		SampleRate: *sampleRate,
		Channels:   numChannels,
		Frequency:  settings.Frequency,
		Seed:       settings.Seed,
		Mode:       settings.Mode,
	}, settings.Params)
	stream := newStreamer(engine)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: numChannels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio device: %v\n", err)
		os.Exit(1)
	}
	<-ready
	player := ctx.NewPlayer(stream)
	player.Play()
	defer player.Close()

	if err := console(engine, settings, stream); err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		os.Exit(1)
	}
}

func console(engine *pluck.Engine, settings *preset.Settings, stream *streamer) error {
	rl, err := readline.New("pluck> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("Commands: on <note>, off <note>, set <param> <value>, params, save <path>, reset, quit")
	params := engine.Params()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "on":
			pitch, err := parseNote(fields[1:])
			if err != nil {
				fmt.Println(err)
				continue
			}
			stream.enqueue(noteEvent{pitch: pitch})
		case "off":
			pitch, err := parseNote(fields[1:])
			if err != nil {
				fmt.Println(err)
				continue
			}
			stream.enqueue(noteEvent{pitch: pitch, off: true})
		case "set":
			if len(fields) != 3 {
				fmt.Println("usage: set <param> <value>")
				continue
			}
			idx, ok := pluck.IndexByName(fields[1])
			if !ok {
				fmt.Printf("unknown parameter %q (see: params)\n", fields[1])
				continue
			}
			v, err := strconv.ParseFloat(fields[2], 32)
			if err != nil {
				fmt.Printf("bad value %q\n", fields[2])
				continue
			}
			params.Set(idx, float32(v))
			fmt.Printf("%s = %s\n", params.Name(idx), params.Text(idx))
		case "params":
			for i := 0; i < pluck.NumParams; i++ {
				fmt.Printf("  %-14s %s\n", params.Name(i), params.Text(i))
			}
		case "save":
			if len(fields) != 2 {
				fmt.Println("usage: save <path>")
				continue
			}
			if err := preset.SaveJSON(fields[1], preset.FromSettings(settings)); err != nil {
				fmt.Printf("save failed: %v\n", err)
				continue
			}
			fmt.Printf("saved %s\n", fields[1])
		case "reset":
			engine.Reset()
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func parseNote(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: on|off <midi note 0-127>")
	}
	pitch, err := strconv.Atoi(args[0])
	if err != nil || pitch < 0 || pitch > 127 {
		return 0, fmt.Errorf("bad note %q (expected 0-127)", args[0])
	}
	return pitch, nil
}
