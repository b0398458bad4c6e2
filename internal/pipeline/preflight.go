package pipeline

import (
	"os"
	"path/filepath"

	"github.com/cuivienor/silence-cutter/internal/model"
)

// Preflight checks cfg against the filesystem before a job is started.
// Every failure wraps model.ErrInvalidConfiguration.
func (o *Orchestrator) Preflight(cfg model.JobConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return o.preflight(cfg)
}

func (o *Orchestrator) preflight(cfg model.JobConfig) error {
	fi, err := os.Stat(cfg.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Invalid("input file does not exist: %s", cfg.InputPath)
		}
		return model.Invalid("cannot access input file: %v", err)
	}
	if !fi.Mode().IsRegular() {
		return model.Invalid("input is not a regular file: %s", cfg.InputPath)
	}
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return model.Invalid("input file is not readable: %s", cfg.InputPath)
	}
	f.Close()

	output := filepath.Clean(cfg.OutputPath)
	if cfg.Preprocess && output == filepath.Clean(o.deps.Preprocessor.IntermediatePath(cfg.InputPath)) {
		return model.Invalid("output path collides with the temporary file: %s", cfg.OutputPath)
	}
	if ofi, err := os.Stat(output); err == nil && ofi.IsDir() {
		return model.Invalid("output path is a directory: %s", cfg.OutputPath)
	}

	dir := filepath.Dir(output)
	if dfi, err := os.Stat(dir); err != nil || !dfi.IsDir() {
		return model.Invalid("output directory does not exist: %s", dir)
	}
	if err := o.deps.Checker.CheckWritableDir(dir); err != nil {
		return model.Invalid("output directory is not writable: %s", dir)
	}
	return nil
}

// OutputExists reports whether running cfg would overwrite an existing file
func OutputExists(cfg model.JobConfig) bool {
	fi, err := os.Stat(cfg.OutputPath)
	return err == nil && fi.Mode().IsRegular()
}
