package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesm/runs/internal/db"
	"github.com/wesm/runs/internal/record"
)

// RemoveConfig holds parsed CLI options for the rm command.
type RemoveConfig struct {
	Filter db.RunFilter
	DryRun bool
	Yes    bool
}

func newRmCmd(a *app) *cobra.Command {
	var rc RemoveConfig
	cmd := &cobra.Command{
		Use:   "rm PATTERN...",
		Short: "Delete recorded runs",
		Long: `Delete the runs selected by the patterns, after printing a
summary and asking for confirmation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc.Filter.Patterns = args

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			r := &Remover{
				DB:  database,
				Out: cmd.OutOrStdout(),
				In:  cmd.InOrStdin(),
			}
			return r.Remove(cmd.Context(), rc)
		},
	}
	addQueryFlags(cmd, &rc.Filter.Unless)
	cmd.Flags().BoolVar(&rc.DryRun, "dry-run", false,
		"Show what would be deleted without deleting")
	cmd.Flags().BoolVarP(&rc.Yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

// Remover executes the rm workflow against a database.
type Remover struct {
	DB  *db.DB
	Out io.Writer
	In  io.Reader
}

// Remove finds the selected runs and deletes them.
func (r *Remover) Remove(ctx context.Context, cfg RemoveConfig) error {
	if len(cfg.Filter.Patterns) == 0 {
		return errors.New(
			"at least one pattern is required " +
				"(refusing to remove all runs)",
		)
	}

	runs, err := r.DB.ResolveRuns(ctx, cfg.Filter)
	if err != nil {
		return fmt.Errorf("finding runs: %w", err)
	}
	if len(runs) == 0 {
		return record.ErrEmptyRunSet
	}

	writeSummary(r.Out, runs)

	if cfg.DryRun {
		fmt.Fprintln(r.Out, "\nDry run: no changes made.")
		return nil
	}

	if !cfg.Yes {
		msg := fmt.Sprintf("\nDelete %d runs?", len(runs))
		if !confirm(r.In, r.Out, msg) {
			fmt.Fprintln(r.Out, "Aborted.")
			return nil
		}
	}

	paths := make([]string, len(runs))
	for i, run := range runs {
		paths[i] = run.Path
	}
	deleted, err := r.DB.DeleteRuns(paths)
	if err != nil {
		return fmt.Errorf("deleting runs: %w", err)
	}
	fmt.Fprintf(r.Out, "\nDeleted %d runs\n", deleted)
	return nil
}

func confirm(r io.Reader, w io.Writer, msg string) bool {
	fmt.Fprintf(w, "%s [y/N] ", msg)
	scanner := bufio.NewScanner(r)
	scanner.Scan()
	ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return ans == "y" || ans == "yes"
}

// writeSummary prints the run count grouped by top-level directory.
func writeSummary(w io.Writer, runs []record.Run) {
	byDir := map[string]int{}
	var dirs []string
	for _, r := range runs {
		dir, _, _ := strings.Cut(r.Path, "/")
		if byDir[dir] == 0 {
			dirs = append(dirs, dir)
		}
		byDir[dir]++
	}

	sort.Strings(dirs)

	fmt.Fprintf(w, "Found %d runs\n", len(runs))
	fmt.Fprintln(w, "\nBy directory:")
	for _, dir := range dirs {
		fmt.Fprintf(w, "  %-40s %d\n", dir, byDir[dir])
	}
}
