package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuivienor/silence-cutter/internal/diagnostics"
)

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg, ffprobe and auto-editor are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.load(nil)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			if path := app.Config.Path(); path != "" {
				fmt.Fprintf(out, "Config: %s\n", path)
			} else {
				fmt.Fprintln(out, "Config: defaults (no config file found)")
			}
			for _, w := range app.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintln(out)

			report := app.Diagnostics
			for _, item := range report.Items {
				mark := "ok  "
				if item.Status == diagnostics.StatusFail {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "[%s] %-12s %s\n", mark, item.Name, item.Message)
				if item.Status == diagnostics.StatusFail && item.Hint != "" {
					fmt.Fprintf(out, "       %s\n", item.Hint)
				}
			}
			if report.HasFailures {
				return report.Err()
			}

			fmt.Fprintln(out)
			fmt.Fprint(out, "Hardware encoders: ")
			encoders := app.Encoders.Available(cmd.Context()).List()
			if len(encoders) == 0 {
				fmt.Fprintln(out, "none (software encoding only)")
				return nil
			}
			for i, h := range encoders {
				if i > 0 {
					fmt.Fprint(out, ", ")
				}
				fmt.Fprint(out, h.DisplayName())
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
