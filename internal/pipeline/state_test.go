package pipeline

import (
	"testing"

	"github.com/cuivienor/silence-cutter/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.JobState
		want     bool
	}{
		{model.JobStateIdle, model.JobStateInspecting, true},
		{model.JobStateIdle, model.JobStatePreprocessing, false},
		{model.JobStateInspecting, model.JobStatePreprocessing, true},
		{model.JobStateInspecting, model.JobStateRemovingSilence, true},
		{model.JobStateInspecting, model.JobStateCancelled, true},
		{model.JobStateInspecting, model.JobStateSucceeded, false},
		{model.JobStatePreprocessing, model.JobStateRemovingSilence, true},
		{model.JobStatePreprocessing, model.JobStateFailed, true},
		{model.JobStatePreprocessing, model.JobStateCancelled, true},
		{model.JobStatePreprocessing, model.JobStateSucceeded, false},
		{model.JobStateRemovingSilence, model.JobStateSucceeded, true},
		{model.JobStateRemovingSilence, model.JobStateFailed, true},
		{model.JobStateRemovingSilence, model.JobStateCancelled, true},
		{model.JobStateRemovingSilence, model.JobStatePreprocessing, false},
		{model.JobStateSucceeded, model.JobStateInspecting, true},
		{model.JobStateFailed, model.JobStateInspecting, true},
		{model.JobStateCancelled, model.JobStateInspecting, true},
		{model.JobStateSucceeded, model.JobStateFailed, false},
		{model.JobStateCancelled, model.JobStateSucceeded, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransition_CancelReachableFromEveryActiveState(t *testing.T) {
	for _, s := range []model.JobState{model.JobStateInspecting, model.JobStatePreprocessing, model.JobStateRemovingSilence} {
		if !s.IsActive() {
			t.Errorf("%s should be active", s)
		}
		if !CanTransition(s, model.JobStateCancelled) {
			t.Errorf("cannot cancel from %s", s)
		}
	}
}
