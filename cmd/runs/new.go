package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesm/runs/internal/config"
	"github.com/wesm/runs/internal/db"
	"github.com/wesm/runs/internal/record"
	"github.com/wesm/runs/internal/vcs"
)

// NewConfig holds parsed CLI options for the new command.
type NewConfig struct {
	Paths        []string
	Commands     []string
	Descriptions []string
	Commit       string
	Overwrite    bool
}

func newNewCmd(a *app) *cobra.Command {
	var nc NewConfig
	cmd := &cobra.Command{
		Use:   "new [PATH COMMAND]",
		Short: "Record one or more runs",
		Long: `Record runs under the given paths.

Either pass a single PATH and COMMAND, or repeat --path, --command and
--description once per run. The revision is read from the git
repository enclosing the working directory unless --commit is given.
Each recorded full command (prefix, command and default flags) is
printed on its own line.`,
		Example: `  runs new sweep/lr-0.1 'python train.py --lr=0.1' --description=baseline
  runs new --path=a --command='prog 1' --description=one \
           --path=b --command='prog 2' --description=two`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := nc.fromArgs(args); err != nil {
				return err
			}
			if nc.Commit == "" {
				nc.Commit = a.headCommit()
			}
			runs, err := nc.runs(a)
			if err != nil {
				return err
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			if nc.Overwrite {
				if err := a.logReplaced(cmd.Context(), database, runs); err != nil {
					return err
				}
			}
			if err := database.InsertRuns(runs, nc.Overwrite); err != nil {
				return fmt.Errorf("recording runs: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				a.log.Info("recorded run", "path", r.Path, "commit", short(r.Commit))
				fmt.Fprintln(out, r.FullCommand)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&nc.Paths, "path", nil, "Path of a run (repeatable)")
	f.StringArrayVar(&nc.Commands, "command", nil, "Command of a run (repeatable)")
	f.StringArrayVar(&nc.Descriptions, "description", nil,
		"Description of a run (repeatable)")
	f.StringVar(&nc.Commit, "commit", "",
		"Revision to record instead of the repository HEAD")
	f.BoolVar(&nc.Overwrite, "overwrite", false, "Replace runs that already exist")
	f.String("prefix", "", "Text prepended to every full command")
	return cmd
}

// fromArgs folds the positional PATH COMMAND form into the repeated
// flag form and checks that the lists line up.
func (nc *NewConfig) fromArgs(args []string) error {
	switch len(args) {
	case 0:
	case 2:
		if len(nc.Paths) > 0 || len(nc.Commands) > 0 {
			return errors.New(
				"pass PATH COMMAND or --path/--command, not both",
			)
		}
		nc.Paths = []string{args[0]}
		nc.Commands = []string{args[1]}
	default:
		return errors.New("PATH requires a COMMAND")
	}

	if len(nc.Paths) == 0 {
		return errors.New("at least one run is required\n" +
			"use PATH COMMAND or --path and --command")
	}
	if len(nc.Paths) != len(nc.Commands) {
		return fmt.Errorf(
			"got %d paths but %d commands", len(nc.Paths), len(nc.Commands),
		)
	}
	if n := len(nc.Descriptions); n > 0 && n != len(nc.Paths) {
		return fmt.Errorf(
			"got %d runs but %d descriptions", len(nc.Paths), n,
		)
	}
	seen := make(map[string]bool, len(nc.Paths))
	for _, p := range nc.Paths {
		p = strings.Trim(p, "/")
		if p == "" {
			return errors.New("run path must not be empty")
		}
		if seen[p] {
			return fmt.Errorf("path %s given more than once", p)
		}
		seen[p] = true
	}
	return nil
}

func (nc *NewConfig) runs(a *app) ([]record.Run, error) {
	now := a.now().UTC()
	out := make([]record.Run, len(nc.Paths))
	for i, p := range nc.Paths {
		r := record.Run{
			Path:     strings.Trim(p, "/"),
			Command:  strings.TrimSpace(nc.Commands[i]),
			Commit:   nc.Commit,
			Datetime: now,
		}
		if r.Command == "" {
			return nil, fmt.Errorf("run %s: empty command", r.Path)
		}
		if len(nc.Descriptions) > 0 {
			r.Description = nc.Descriptions[i]
		}
		r.FullCommand = fullCommand(a.cfg, r)
		out[i] = r
	}
	return out, nil
}

// fullCommand is the line the run was actually launched with.
func fullCommand(cfg config.Config, r record.Run) string {
	parts := []string{cfg.Prefix, r.Command}
	parts = append(parts, cfg.InterpolatedFlags(r.Path)...)
	var words []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			words = append(words, p)
		}
	}
	return strings.Join(words, " ")
}

// logReplaced notes each run that --overwrite is about to replace.
func (a *app) logReplaced(
	ctx context.Context, database *db.DB, runs []record.Run,
) error {
	for _, r := range runs {
		old, err := database.GetRun(ctx, r.Path)
		if err != nil {
			return err
		}
		if old != nil {
			a.log.Warn("replacing run",
				"path", old.Path, "commit", short(old.Commit),
				"command", old.Command)
		}
	}
	return nil
}

// headCommit returns the HEAD of the repository enclosing the working
// directory, or "" with a warning when there is none.
func (a *app) headCommit() string {
	dir, err := os.Getwd()
	if err != nil {
		a.log.Warn("cannot determine working directory", "err", err)
		return ""
	}
	commit, err := vcs.HeadCommit(dir)
	if err != nil {
		a.log.Warn("recording runs without a revision", "err", err)
		return ""
	}
	return commit
}

func short(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
