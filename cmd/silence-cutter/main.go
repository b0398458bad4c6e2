package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cuivienor/silence-cutter/internal/bootstrap"
	"github.com/cuivienor/silence-cutter/internal/runner"
	"github.com/cuivienor/silence-cutter/internal/tui"
)

// Exit codes
const (
	exitOK        = 0
	exitError     = 1
	exitCancelled = 130
)

// rootOptions are the flags shared by every command
type rootOptions struct {
	configPath string
}

// load builds the application. Logs go to logs, or nowhere when nil.
func (o *rootOptions) load(logs io.Writer) (*bootstrap.App, error) {
	return bootstrap.New(bootstrap.Options{
		ConfigPath:  o.configPath,
		LogWriter:   logs,
		DotEnvPaths: []string{".env"},
	})
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "silence-cutter [input]",
		Short:        "Remove silent parts from a video using auto-editor",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.load(nil)
			if err != nil {
				return err
			}
			defer app.Close()

			defaults := app.Defaults
			if len(args) == 1 {
				defaults.InputPath = absPath(args[0])
			}
			ui := tui.NewApp(tui.Options{
				Pipeline:    app.Pipeline,
				Inspector:   app.Inspector,
				Defaults:    defaults,
				Diagnostics: app.Diagnostics,
				Warnings:    app.Warnings,
			})

			p := tea.NewProgram(ui, tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running program: %w", err)
			}
			return nil
		},
	}
	root.SilenceErrors = true
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/silence-cutter/config.yaml)")

	root.AddCommand(newRunCmd(opts), newProbeCmd(opts), newDoctorCmd(opts))
	return root
}

// execute runs the CLI and returns the process exit code
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if errors.Is(err, runner.ErrCancelled) {
			fmt.Fprintln(stderr, "Cancelled")
			return exitCancelled
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
