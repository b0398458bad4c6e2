package bootstrap

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/cuivienor/silence-cutter/internal/config"
	"github.com/cuivienor/silence-cutter/internal/diagnostics"
	"github.com/cuivienor/silence-cutter/internal/logging"
	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/pipeline"
	"github.com/cuivienor/silence-cutter/internal/runner"
	"github.com/cuivienor/silence-cutter/internal/silence"
	"github.com/cuivienor/silence-cutter/internal/transcode"
)

// Options control how the application is assembled
type Options struct {
	// ConfigPath overrides the default config search when set
	ConfigPath string
	// LogWriter receives logs when the config names no log file.
	// Nil discards them, which is what the TUI wants.
	LogWriter io.Writer
	// DotEnvPaths are loaded into the environment before the config
	DotEnvPaths []string
}

// App wires configuration, tools, stages and the orchestrator.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Runner      *runner.Runner
	Inspector   *transcode.Inspector
	Encoders    *transcode.EncoderDetector
	Checker     *diagnostics.Checker
	Pipeline    *pipeline.Orchestrator
	Tools       pipeline.Tools
	Diagnostics diagnostics.Report
	// Defaults are the initial job options from config
	Defaults model.JobConfig
	// Warnings collects non-fatal config problems for display
	Warnings []string

	logCloser io.Closer
}

// New loads configuration and builds the application with startup diagnostics.
func New(opts Options) (*App, error) {
	if err := config.LoadDotEnv(opts.DotEnvPaths...); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var (
		logger *slog.Logger
		closer io.Closer
	)
	switch {
	case cfg.Logging.File != "":
		logger, closer, err = logging.Open(cfg.Logging.File, cfg.LogLevel(), cfg.LogFormat())
		if err != nil {
			return nil, err
		}
	case opts.LogWriter != nil:
		logger = logging.New(opts.LogWriter, cfg.LogLevel(), cfg.LogFormat())
	default:
		logger = logging.Discard()
	}

	app := NewWithConfig(cfg, logger)
	app.logCloser = closer
	if _, err := logging.ParseLevel(cfg.LogLevel()); err != nil {
		app.Warnings = append(app.Warnings, err.Error())
	}
	return app, nil
}

// NewWithConfig builds the application from an already loaded config
func NewWithConfig(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = logging.Discard()
	}

	r := runner.New()
	tools := pipeline.Tools{
		FFprobe:    cfg.FFprobe(),
		FFmpeg:     cfg.FFmpeg(),
		AutoEditor: silence.ResolveExecutable(cfg.AutoEditor()),
	}

	inspector := transcode.NewInspector(r, tools.FFprobe)
	encoders := transcode.NewEncoderDetector(r, tools.FFmpeg, cfg.VAAPIDevice(), logger)
	preprocessor := transcode.NewPreprocessor(r, encoders, transcode.PreprocessSettings{
		FFmpeg:             tools.FFmpeg,
		DefaultBitrate:     cfg.DefaultBitrate(),
		AudioCodec:         cfg.AudioCodec(),
		AudioBitrate:       cfg.AudioBitrate(),
		IntermediateSuffix: cfg.IntermediateSuffix(),
		VAAPIDevice:        cfg.VAAPIDevice(),
	})
	remover := silence.NewRemover(r, tools.AutoEditor)
	checker := diagnostics.NewChecker()

	orchestrator := pipeline.New(pipeline.Deps{
		Inspector:    inspector,
		Preprocessor: preprocessor,
		Remover:      remover,
		Checker:      checker,
		Tools:        tools,
		Logger:       logger,
	})

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Runner:    r,
		Inspector: inspector,
		Encoders:  encoders,
		Checker:   checker,
		Pipeline:  orchestrator,
		Tools:     tools,
	}

	defaults, err := cfg.JobDefaults()
	if err != nil {
		app.Warnings = append(app.Warnings, err.Error())
	}
	app.Defaults = defaults

	app.RefreshDiagnostics()
	return app
}

// RefreshDiagnostics reruns the tool checks and caches the report
func (a *App) RefreshDiagnostics() diagnostics.Report {
	a.Diagnostics = a.Checker.Run(diagnostics.Tools{
		FFmpeg:     a.Tools.FFmpeg,
		FFprobe:    a.Tools.FFprobe,
		AutoEditor: a.Tools.AutoEditor,
	})
	for _, item := range a.Diagnostics.Items {
		if item.Status == diagnostics.StatusFail {
			a.Logger.Warn("tool check failed", "tool", item.Name, "error", item.Message)
		}
	}
	return a.Diagnostics
}

// Close releases the log file, if one was opened
func (a *App) Close() error {
	if a.logCloser == nil {
		return nil
	}
	return a.logCloser.Close()
}
