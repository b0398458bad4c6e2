package model

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// JobState represents where a job is in its lifecycle
type JobState string

const (
	JobStateIdle            JobState = "idle"
	JobStateInspecting      JobState = "inspecting"
	JobStatePreprocessing   JobState = "preprocessing"
	JobStateRemovingSilence JobState = "removing_silence"
	JobStateSucceeded       JobState = "succeeded"
	JobStateFailed          JobState = "failed"
	JobStateCancelled       JobState = "cancelled"
)

// IsActive returns true while a stage of the job is running
func (s JobState) IsActive() bool {
	switch s {
	case JobStateInspecting, JobStatePreprocessing, JobStateRemovingSilence:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the job has finished, one way or another
func (s JobState) IsTerminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed || s == JobStateCancelled
}

// DisplayName returns the state as shown to the user
func (s JobState) DisplayName() string {
	switch s {
	case JobStateIdle:
		return "Idle"
	case JobStateInspecting:
		return "Inspecting"
	case JobStatePreprocessing:
		return "Preprocessing"
	case JobStateRemovingSilence:
		return "Removing silence"
	case JobStateSucceeded:
		return "Succeeded"
	case JobStateFailed:
		return "Failed"
	case JobStateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Preset is the encoding speed/quality trade-off, ordered fastest to best
type Preset int

const (
	PresetFastest Preset = iota
	PresetFast
	PresetBalanced
	PresetQuality
	PresetBest
)

// Presets lists every preset in order
var Presets = []Preset{PresetFastest, PresetFast, PresetBalanced, PresetQuality, PresetBest}

func (p Preset) String() string {
	switch p {
	case PresetFastest:
		return "fastest"
	case PresetFast:
		return "fast"
	case PresetBalanced:
		return "balanced"
	case PresetQuality:
		return "quality"
	case PresetBest:
		return "best"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the known presets
func (p Preset) Valid() bool {
	return p >= PresetFastest && p <= PresetBest
}

// ParsePreset parses a preset name as written in config files and flags
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fastest":
		return PresetFastest, nil
	case "fast":
		return PresetFast, nil
	case "balanced", "":
		return PresetBalanced, nil
	case "quality":
		return PresetQuality, nil
	case "best", "best-quality", "best_quality":
		return PresetBest, nil
	default:
		return PresetBalanced, Invalid("unknown preset %q", s)
	}
}

// HardwareEncoder selects a hardware video encoder backend
type HardwareEncoder string

const (
	HardwareNone  HardwareEncoder = "none"
	HardwareAuto  HardwareEncoder = "auto"
	HardwareNVENC HardwareEncoder = "nvenc" // NVIDIA
	HardwareQSV   HardwareEncoder = "qsv"   // Intel Quick Sync
	HardwareAMF   HardwareEncoder = "amf"   // AMD
	HardwareVAAPI HardwareEncoder = "vaapi"
)

// HardwareEncoders lists every selectable option, in UI order
var HardwareEncoders = []HardwareEncoder{
	HardwareNone, HardwareAuto, HardwareNVENC, HardwareQSV, HardwareAMF, HardwareVAAPI,
}

// VendorEncoders lists concrete backends in auto-selection priority order
var VendorEncoders = []HardwareEncoder{HardwareNVENC, HardwareQSV, HardwareAMF, HardwareVAAPI}

// IsVendor returns true for a concrete hardware backend
func (h HardwareEncoder) IsVendor() bool {
	switch h {
	case HardwareNVENC, HardwareQSV, HardwareAMF, HardwareVAAPI:
		return true
	default:
		return false
	}
}

// DisplayName returns the encoder label used in selectors
func (h HardwareEncoder) DisplayName() string {
	switch h {
	case HardwareNone:
		return "None (software)"
	case HardwareAuto:
		return "Auto-detect"
	case HardwareNVENC:
		return "NVIDIA NVENC"
	case HardwareQSV:
		return "Intel Quick Sync"
	case HardwareAMF:
		return "AMD AMF"
	case HardwareVAAPI:
		return "VA-API"
	default:
		return string(h)
	}
}

// ParseHardwareEncoder parses a hardware selection from config files and flags
func ParseHardwareEncoder(s string) (HardwareEncoder, error) {
	h := HardwareEncoder(strings.ToLower(strings.TrimSpace(s)))
	if h == "" {
		return HardwareNone, nil
	}
	for _, known := range HardwareEncoders {
		if h == known {
			return h, nil
		}
	}
	return HardwareNone, Invalid("unknown hardware encoder %q", s)
}

// JobConfig is everything needed to run one job. It is built fresh from the
// form for every run and passed by value.
type JobConfig struct {
	InputPath       string
	OutputPath      string
	Threshold       float64 // silence threshold, percent of full scale
	Margin          int     // frames kept around loud sections
	Preprocess      bool
	Preset          Preset
	Hardware        HardwareEncoder
	PreserveQuality bool
}

// Default option values
const (
	DefaultThreshold = 4.0
	DefaultMargin    = 6
)

// DefaultJobConfig returns a config with default options and no paths
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Threshold:  DefaultThreshold,
		Margin:     DefaultMargin,
		Preprocess: true,
		Preset:     PresetBalanced,
		Hardware:   HardwareNone,
	}
}

// ValidThreshold reports whether t is a finite percentage in 0..100
func ValidThreshold(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0) && t >= 0 && t <= 100
}

// Validate checks option values. It does not touch the filesystem.
func (c JobConfig) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return Invalid("input path is required")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return Invalid("output path is required")
	}
	if filepath.Clean(c.InputPath) == filepath.Clean(c.OutputPath) {
		return Invalid("output path must differ from input path")
	}
	if !ValidThreshold(c.Threshold) {
		return Invalid("threshold must be between 0 and 100, got %g", c.Threshold)
	}
	if c.Margin < 0 {
		return Invalid("margin must not be negative, got %d", c.Margin)
	}
	if !c.Preset.Valid() {
		return Invalid("unknown preset %d", int(c.Preset))
	}
	if _, err := ParseHardwareEncoder(string(c.Hardware)); err != nil {
		return err
	}
	return nil
}

// DefaultOutputPath returns <dir>/<stem>_cleaned.mp4 for an input file
func DefaultOutputPath(inputPath string) string {
	if strings.TrimSpace(inputPath) == "" {
		return ""
	}
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, fmt.Sprintf("%s_cleaned.mp4", stem))
}

// StageResult is the outcome of one stage's tool invocation
type StageResult struct {
	Stage      Stage
	ExitCode   int
	Output     string // captured combined output
	OutputPath string // file produced by the stage, if any
}
