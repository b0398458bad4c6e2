package tui

import (
	"strings"

	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/pipeline"
)

// maxLogLines bounds the live log kept for the log pane
const maxLogLines = 1000

// JobStatus is the running view's picture of a job, built from its events.
// Events are applied in the order received; the sequence number is only
// used to ignore events from a previous job.
type JobStatus struct {
	ID       string
	State    model.JobState
	Stage    model.Stage
	Percent  float64
	Info     *model.MediaInfo
	Warnings []string
	Log      []string
	Result   *pipeline.Event

	lastSeq int64
}

// NewJobStatus returns the status of a job that has just been started
func NewJobStatus(id string) *JobStatus {
	return &JobStatus{ID: id, State: model.JobStateInspecting, Stage: model.StageInspect}
}

// Active returns true until the result event has been seen
func (s *JobStatus) Active() bool {
	return s.Result == nil
}

// Apply folds one event into the status. It returns true when the log changed.
func (s *JobStatus) Apply(ev pipeline.Event) bool {
	if ev.JobID != "" && ev.JobID != s.ID {
		return false
	}
	if ev.Seq != 0 && ev.Seq <= s.lastSeq {
		return false
	}
	s.lastSeq = ev.Seq

	switch ev.Type {
	case pipeline.EventState:
		if ev.State != s.State && ev.State.IsActive() {
			s.Percent = 0
		}
		s.State = ev.State
		s.Stage = ev.Stage
		if ev.State.IsActive() {
			s.appendLog("== " + ev.Stage.DisplayName())
			return true
		}

	case pipeline.EventLog:
		s.appendLog(ev.Line)
		return true

	case pipeline.EventProgress:
		s.Percent = clampPercent(ev.Percent)

	case pipeline.EventInfo:
		info := ev.Info
		s.Info = &info

	case pipeline.EventWarning:
		s.Warnings = append(s.Warnings, ev.Message)
		s.appendLog("WARNING: " + ev.Message)
		return true

	case pipeline.EventResult:
		result := ev
		s.Result = &result
		s.State = ev.State
		switch ev.State {
		case model.JobStateSucceeded:
			s.Percent = 100
			s.appendLog("Done: " + ev.Message)
		case model.JobStateFailed:
			s.appendLog("ERROR: " + ev.Message)
			for _, line := range strings.Split(strings.TrimRight(ev.Output, "\n"), "\n") {
				if line != "" {
					s.appendLog("  " + line)
				}
			}
		case model.JobStateCancelled:
			s.appendLog("Cancelled")
		}
		return true
	}
	return false
}

func (s *JobStatus) appendLog(line string) {
	s.Log = append(s.Log, line)
	if over := len(s.Log) - maxLogLines; over > 0 {
		s.Log = append(s.Log[:0], s.Log[over:]...)
	}
}

// LogText returns the log joined for the log pane
func (s *JobStatus) LogText() string {
	return strings.Join(s.Log, "\n")
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
