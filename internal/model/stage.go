package model

// Stage represents a step of a silence-removal job
type Stage int

const (
	StageInspect Stage = iota
	StagePreprocess
	StageRemoveSilence
)

func (s Stage) String() string {
	switch s {
	case StageInspect:
		return "inspect"
	case StagePreprocess:
		return "preprocess"
	case StageRemoveSilence:
		return "remove_silence"
	default:
		return "unknown"
	}
}

// DisplayName returns the stage heading shown while it runs
func (s Stage) DisplayName() string {
	switch s {
	case StageInspect:
		return "Inspecting media"
	case StagePreprocess:
		return "Preprocessing"
	case StageRemoveSilence:
		return "Removing silence"
	default:
		return "Unknown"
	}
}

// State returns the job state a job is in while this stage runs
func (s Stage) State() JobState {
	switch s {
	case StageInspect:
		return JobStateInspecting
	case StagePreprocess:
		return JobStatePreprocessing
	case StageRemoveSilence:
		return JobStateRemovingSilence
	default:
		return JobStateIdle
	}
}

// Tool returns the external executable the stage drives
func (s Stage) Tool() string {
	switch s {
	case StageInspect:
		return "ffprobe"
	case StagePreprocess:
		return "ffmpeg"
	case StageRemoveSilence:
		return "auto-editor"
	default:
		return ""
	}
}

// StageReporter receives a running stage's output as it streams
type StageReporter interface {
	// Line is called for every line the stage's tool prints
	Line(line string)
	// Progress is called with a completion estimate in [0, 100]
	Progress(percent float64)
	// Warning reports a non-fatal problem
	Warning(msg string)
}

// DiscardReporter is a StageReporter that ignores everything
type DiscardReporter struct{}

func (DiscardReporter) Line(string)      {}
func (DiscardReporter) Progress(float64) {}
func (DiscardReporter) Warning(string)   {}
