package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/pipeline"
	"github.com/cuivienor/silence-cutter/internal/runner"
)

// jobFlags are the job options accepted by run
type jobFlags struct {
	output          string
	threshold       float64
	margin          int
	noPreprocess    bool
	preset          string
	hardware        string
	preserveQuality bool
	yes             bool
	quiet           bool
}

// apply overrides cfg with every flag the user actually set
func (f *jobFlags) apply(cmd *cobra.Command, cfg model.JobConfig) (model.JobConfig, error) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputPath = absPath(f.output)
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = model.DefaultOutputPath(cfg.InputPath)
	}
	if flags.Changed("threshold") {
		cfg.Threshold = f.threshold
	}
	if flags.Changed("margin") {
		cfg.Margin = f.margin
	}
	if flags.Changed("no-preprocess") {
		cfg.Preprocess = !f.noPreprocess
	}
	if flags.Changed("preset") {
		p, err := model.ParsePreset(f.preset)
		if err != nil {
			return cfg, err
		}
		cfg.Preset = p
	}
	if flags.Changed("hw") {
		h, err := model.ParseHardwareEncoder(f.hardware)
		if err != nil {
			return cfg, err
		}
		cfg.Hardware = h
	}
	if flags.Changed("preserve-quality") {
		cfg.PreserveQuality = f.preserveQuality
	}
	return cfg, nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	f := &jobFlags{}

	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Remove silence from a video without the interactive UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()

			for _, w := range app.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}

			cfg := app.Defaults
			cfg.InputPath = absPath(args[0])
			cfg, err = f.apply(cmd, cfg)
			if err != nil {
				return err
			}

			if err := app.Pipeline.Preflight(cfg); err != nil {
				return err
			}
			if pipeline.OutputExists(cfg) && !f.yes {
				ok, err := confirmOverwrite(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.OutputPath)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s already exists (use --yes to overwrite)", cfg.OutputPath)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, events, err := app.Pipeline.Start(ctx, cfg)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events, f.quiet)
		},
	}

	f.register(cmd.Flags())
	return cmd
}

// register binds the job flags to fl
func (f *jobFlags) register(fl *pflag.FlagSet) {
	defaults := model.DefaultJobConfig()
	fl.StringVarP(&f.output, "output", "o", "", "Output file (default <input>_cleaned.mp4)")
	fl.Float64Var(&f.threshold, "threshold", defaults.Threshold, "Silence threshold in percent; lower is more sensitive")
	fl.IntVar(&f.margin, "margin", defaults.Margin, "Frames kept around loud sections")
	fl.BoolVar(&f.noPreprocess, "no-preprocess", false, "Skip the ffmpeg normalization pass")
	fl.StringVar(&f.preset, "preset", defaults.Preset.String(), "Encoding preset: fastest, fast, balanced, quality, best")
	fl.StringVar(&f.hardware, "hw", string(defaults.Hardware), "Hardware encoder: none, auto, nvenc, qsv, amf, vaapi")
	fl.BoolVar(&f.preserveQuality, "preserve-quality", false, "Match the source bitrate when preprocessing")
	fl.BoolVarP(&f.yes, "yes", "y", false, "Overwrite the output without asking")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Only print stage changes and the result")
}

// confirmOverwrite asks on in whether path may be replaced
func confirmOverwrite(in io.Reader, out io.Writer, path string) (bool, error) {
	fmt.Fprintf(out, "%s already exists. Overwrite? [y/N] ", path)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// printEvents writes job events to w until the job finishes and returns
// the job's error, runner.ErrCancelled when it was cancelled
func printEvents(w io.Writer, events <-chan pipeline.Event, quiet bool) error {
	lastBucket := -1
	var result *pipeline.Event

	for ev := range events {
		switch ev.Type {
		case pipeline.EventState:
			if ev.State.IsActive() {
				fmt.Fprintf(w, "==> %s\n", ev.Stage.DisplayName())
				lastBucket = -1
			}
		case pipeline.EventInfo:
			printInfo(w, ev.Info)
		case pipeline.EventWarning:
			fmt.Fprintf(w, "warning: %s\n", ev.Message)
		case pipeline.EventLog:
			if !quiet {
				fmt.Fprintf(w, "    %s\n", ev.Line)
			}
		case pipeline.EventProgress:
			// One line per 10%
			if bucket := int(ev.Percent) / 10; bucket > lastBucket {
				lastBucket = bucket
				if !quiet {
					fmt.Fprintf(w, "    %s %3d%%\n", ev.Stage, bucket*10)
				}
			}
		case pipeline.EventResult:
			r := ev
			result = &r
		}
	}

	if result == nil {
		return fmt.Errorf("job ended without a result")
	}
	switch result.State {
	case model.JobStateSucceeded:
		fmt.Fprintf(w, "Video saved to %s\n", result.OutputPath)
		return nil
	case model.JobStateCancelled:
		return runner.ErrCancelled
	default:
		if result.Output != "" {
			fmt.Fprintf(w, "--- %s output ---\n%s\n", result.Stage.Tool(), strings.TrimRight(result.Output, "\n"))
		}
		if result.Err != nil {
			return result.Err
		}
		return fmt.Errorf("%s", result.Message)
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
