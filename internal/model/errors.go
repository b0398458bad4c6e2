package model

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by a job. Stage failures are wrapped in a StageError.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInspectionFailed     = errors.New("inspection failed")
	ErrPreprocessFailed     = errors.New("preprocessing failed")
	ErrSilenceRemovalFailed = errors.New("silence removal failed")
	ErrNoAudioTrack         = errors.New("input has no audio track")
)

// StageError is a stage-aware failure carrying the tool's captured output
type StageError struct {
	Stage   Stage
	Kind    error
	Message string
	Output  string
	Err     error
}

// Error formats stage failures for logs and the UI.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, msg, e.Err)
}

// Unwrap exposes both the error kind and the underlying cause.
func (e *StageError) Unwrap() []error {
	if e == nil {
		return nil
	}
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Invalid builds an ErrInvalidConfiguration error with a user-facing reason
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
