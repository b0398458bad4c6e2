package pipeline

import "github.com/cuivienor/silence-cutter/internal/model"

// transitions lists the allowed edges of the job state machine
var transitions = map[model.JobState][]model.JobState{
	model.JobStateIdle: {model.JobStateInspecting},
	model.JobStateInspecting: {
		model.JobStatePreprocessing,
		model.JobStateRemovingSilence,
		model.JobStateCancelled,
	},
	model.JobStatePreprocessing: {
		model.JobStateRemovingSilence,
		model.JobStateFailed,
		model.JobStateCancelled,
	},
	model.JobStateRemovingSilence: {
		model.JobStateSucceeded,
		model.JobStateFailed,
		model.JobStateCancelled,
	},
	// A finished job can be followed by a new one
	model.JobStateSucceeded: {model.JobStateInspecting},
	model.JobStateFailed:    {model.JobStateInspecting},
	model.JobStateCancelled: {model.JobStateInspecting},
}

// CanTransition reports whether a job may move from one state to another
func CanTransition(from, to model.JobState) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
