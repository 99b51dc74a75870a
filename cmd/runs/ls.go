package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wesm/runs/internal/record"
)

func newLsCmd(a *app) *cobra.Command {
	var (
		unless []string
		long   bool
	)
	cmd := &cobra.Command{
		Use:   "ls [PATTERN...]",
		Short: "List recorded runs",
		Long: `List the runs whose path, or one of its ancestors, matches any
PATTERN. Patterns are globs over "/" separated paths, so "sweep"
selects everything below sweep. With no pattern every run is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.resolve(cmd.Context(), args, unless)
			if err != nil {
				return err
			}
			if long {
				writeLong(cmd.OutOrStdout(), runs)
				return nil
			}
			for _, r := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), r.Path)
			}
			return nil
		},
	}
	addQueryFlags(cmd, &unless)
	cmd.Flags().BoolVarP(&long, "long", "l", false,
		"Show revision, time, description and command")
	return cmd
}

// writeLong prints one aligned line per run followed by its
// full command.
func writeLong(w io.Writer, runs []record.Run) {
	width := 0
	for _, r := range runs {
		width = max(width, len(r.Path))
	}
	for _, r := range runs {
		commit := short(r.Commit)
		if commit == "" {
			commit = "-"
		}
		fmt.Fprintf(w, "%-*s  %-7s  %s  %s\n",
			width, r.Path, commit,
			r.Datetime.Local().Format("2006-01-02 15:04"),
			r.Description,
		)
		cmd := r.FullCommand
		if cmd == "" {
			cmd = r.Command
		}
		fmt.Fprintf(w, "%-*s  %s\n", width, "", cmd)
	}
}
