package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-pluck/analysis"
	"github.com/cwbudde/algo-pluck/preset"
)

type fitReport struct {
	ReferencePath string             `json:"reference_path"`
	PresetPath    string             `json:"preset_path"`
	Note          int                `json:"note"`
	SampleRate    int                `json:"sample_rate"`
	ReleaseAfter  float64            `json:"release_after"`
	Variant       string             `json:"variant"`
	Evals         int                `json:"evals"`
	ElapsedS      float64            `json:"elapsed_s"`
	BestKnobs     map[string]float64 `json:"best_knobs"`
	Metrics       analysis.Metrics   `json:"metrics"`
	Top           []topCandidate     `json:"top"`
}

func writeOutputs(
	outputPreset string,
	reportPath string,
	referencePath string,
	presetPath string,
	sampleRate int,
	note int,
	releaseAfter float64,
	elapsed float64,
	evals int,
	variant string,
	defs []knobDef,
	best candidate,
	metrics analysis.Metrics,
	settings *preset.Settings,
	top []topCandidate,
) error {
	if err := preset.SaveJSON(outputPreset, preset.FromSettings(settings)); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}

	if reportPath == "" {
		reportPath = outputPreset + ".report.json"
	}
	rep := fitReport{
		ReferencePath: referencePath,
		PresetPath:    presetPath,
		Note:          note,
		SampleRate:    sampleRate,
		ReleaseAfter:  releaseAfter,
		Variant:       variant,
		Evals:         evals,
		ElapsedS:      elapsed,
		BestKnobs:     make(map[string]float64, len(defs)),
		Metrics:       metrics,
		Top:           top,
	}
	for i, d := range defs {
		rep.BestKnobs[d.Name] = best.Vals[i]
	}

	b, err := json.MarshalIndent(&rep, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(reportPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(reportPath, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
