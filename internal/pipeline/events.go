package pipeline

import (
	"time"

	"github.com/cuivienor/silence-cutter/internal/model"
)

// EventType classifies messages emitted while a job runs
type EventType string

const (
	EventState    EventType = "state"
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
	EventInfo     EventType = "info"
	EventWarning  EventType = "warning"
	EventResult   EventType = "result"
)

// eventBuffer is the capacity of a job's event channel. Log and progress
// events are dropped when it is full; state and result events never are.
const eventBuffer = 256

// Event is a sequenced update from a running job
type Event struct {
	Seq        int64
	Timestamp  time.Time
	JobID      string
	Type       EventType
	State      model.JobState
	Stage      model.Stage
	Line       string          // EventLog
	Percent    float64         // EventProgress, stage completion
	Message    string          // EventWarning, EventResult
	Info       model.MediaInfo // EventInfo
	Err        error           // EventResult on failure
	Output     string          // EventResult, captured output of the failing stage
	OutputPath string          // EventResult on success
}

// stageReporter adapts a job's event stream to model.StageReporter
type stageReporter struct {
	job   *job
	stage model.Stage
}

func (r stageReporter) Line(line string) {
	r.job.emit(Event{Type: EventLog, Stage: r.stage, Line: line}, false)
}

func (r stageReporter) Progress(percent float64) {
	r.job.setPercent(percent)
	r.job.emit(Event{Type: EventProgress, Stage: r.stage, Percent: percent}, false)
}

func (r stageReporter) Warning(msg string) {
	r.job.logger.Warn(msg, "stage", r.stage.String())
	r.job.emit(Event{Type: EventWarning, Stage: r.stage, Message: msg}, true)
}
