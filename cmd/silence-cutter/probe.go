package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cuivienor/silence-cutter/internal/model"
)

func newProbeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <input>",
		Short: "Show media details and whether preprocessing is recommended",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()

			info, err := app.Inspector.Inspect(cmd.Context(), absPath(args[0]))
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

// printInfo writes the Media Info summary and preprocessing hints
func printInfo(w io.Writer, info model.MediaInfo) {
	fmt.Fprintf(w, "Format:     %s\n", info.FormatString())
	fmt.Fprintf(w, "Video:      %s, %s\n", info.CodecString(), info.Resolution())
	fmt.Fprintf(w, "Audio:      %s\n", info.AudioString())
	fmt.Fprintf(w, "Duration:   %s\n", info.DurationString())
	fmt.Fprintf(w, "Bitrate:    %s\n", info.BitrateString())
	if info.FPS > 0 {
		vfr := ""
		if info.VariableFrameRate {
			vfr = " (variable)"
		}
		fmt.Fprintf(w, "FPS:        %.2f%s\n", info.FPS, vfr)
	}
	if hints := info.PreprocessHints(); len(hints) > 0 {
		fmt.Fprintln(w, "Pre-processing recommended:")
		for _, h := range hints {
			fmt.Fprintf(w, "  - %s\n", h)
		}
	}
}
