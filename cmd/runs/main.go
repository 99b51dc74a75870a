package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/wesm/runs/internal/config"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func versionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)",
		version, commit, buildDate)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "runs",
		Short: "Record experiment runs and print commands to reproduce them",
		Long: `runs keeps a path-addressed record of the commands you launch
experiments with, together with the git revision they ran at.

It can print the exact shell lines needed to check out that revision
and record the runs again, or fold a sweep of runs back into a single
cross-product spec of the flags that varied.

Configuration is read from .runsrc (TOML) in the working directory or
the data directory, then RUNS_DATA_DIR, RUNS_DB_PATH and RUNS_PREFIX,
then flags. Data is stored in ~/.runs/ by default.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	config.RegisterFlags(pf)
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newNewCmd(a),
		newLsCmd(a),
		newRmCmd(a),
		newReproduceCmd(a),
		newBuildSpecCmd(a),
		newToJSONCmd(a),
		newFromSpecCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "runs %s\n", versionString())
		},
	}
}

// newLogger returns the stderr diagnostics logger.
func newLogger(cmd *cobra.Command, verbose bool) *log.Logger {
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "runs",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
