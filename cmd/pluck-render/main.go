package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	fitcommon "github.com/cwbudde/algo-pluck/internal/fitcommon"
	"github.com/cwbudde/algo-pluck/pluck"
	"github.com/cwbudde/algo-pluck/preset"
)

func main() {
	note := flag.Int("note", 69, "MIDI note number (69 = A4 = 440 Hz)")
	duration := flag.Float64("duration", 2.0, "Duration in seconds")
	releaseAfter := flag.Float64("release-after", 0.5, "Send NoteOff after this many seconds")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Auto-stop when block RMS falls below this dBFS (e.g. -90). Disabled by default")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop in auto-decay mode")
	minDuration := flag.Float64("min-duration", 0.5, "Minimum render duration in seconds when using -decay-dbfs")
	maxDuration := flag.Float64("max-duration", 20.0, "Maximum render duration in seconds when using -decay-dbfs")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	output := flag.String("output", "output.wav", "Output WAV file path")
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

	const numChannels = 2
	eng := pluck.NewEngine(pluck.Config{
		SampleRate: *sampleRate,
		Channels:   numChannels,
		Frequency:  settings.Frequency,
		Seed:       settings.Seed,
		Mode:       settings.Mode,
	}, settings.Params)

	fmt.Printf("Rendering note %d for %.2f seconds at %d Hz...\n", *note, *duration, *sampleRate)

	eng.NoteOn(*note)

	const blockSize = 128
	autoStop := !math.IsInf(*decayDBFS, 1)

	planar := make([][]float32, numChannels)
	for ch := range planar {
		planar[ch] = make([]float32, blockSize)
	}

	renderBlock := func(frames int) []float32 {
		block := planar
		if frames != blockSize {
			block = make([][]float32, numChannels)
			for ch := range block {
				block[ch] = make([]float32, frames)
			}
		}
		eng.Process(block)
		inter, _ := fitcommon.Interleave(block)
		return inter
	}

	var samples []float32
	framesRendered := 0
	releaseAtFrame := int(float64(*sampleRate) * (*releaseAfter))
	if releaseAtFrame < 0 {
		releaseAtFrame = 0
	}
	noteReleased := false

	if autoStop {
		minFrames := int(float64(*sampleRate) * (*minDuration))
		maxFrames := int(float64(*sampleRate) * (*maxDuration))
		if maxFrames < minFrames {
			maxFrames = minFrames
		}
		if maxFrames < 1 {
			maxFrames = blockSize
		}
		if *decayHoldBlocks < 1 {
			*decayHoldBlocks = 1
		}

		thresholdLin := math.Pow(10.0, *decayDBFS/20.0)
		belowCount := 0
		for framesRendered < maxFrames {
			frames := blockSize
			if framesRendered+frames > maxFrames {
				frames = maxFrames - framesRendered
			}
			if !noteReleased && framesRendered >= releaseAtFrame {
				eng.NoteOff(*note)
				noteReleased = true
			}

			block := renderBlock(frames)
			samples = append(samples, block...)
			framesRendered += frames

			if framesRendered >= minFrames {
				if fitcommon.BlockRMS(block) < thresholdLin {
					belowCount++
					if belowCount >= *decayHoldBlocks {
						break
					}
				} else {
					belowCount = 0
				}
			}
		}
		fmt.Printf("Auto-stop at %d frames (%.3fs), threshold %.1f dBFS\n",
			framesRendered, float64(framesRendered)/float64(*sampleRate), *decayDBFS)
	} else {
		totalFrames := int(float64(*sampleRate) * (*duration))
		if totalFrames < 1 {
			totalFrames = 1
		}
		for framesRendered < totalFrames {
			frames := blockSize
			if framesRendered+frames > totalFrames {
				frames = totalFrames - framesRendered
			}
			if !noteReleased && framesRendered >= releaseAtFrame {
				eng.NoteOff(*note)
				noteReleased = true
			}
			samples = append(samples, renderBlock(frames)...)
			framesRendered += frames
		}
	}

	if err := fitcommon.WriteInterleavedWAV(*output, samples, numChannels, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, framesRendered)
}
