package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/wesm/runs/internal/command"
	"github.com/wesm/runs/internal/config"
	"github.com/wesm/runs/internal/db"
	"github.com/wesm/runs/internal/record"
)

// app carries the state shared by every subcommand once the root
// command has parsed its flags.
type app struct {
	cfg     config.Config
	log     *log.Logger
	verbose bool
	now     func() time.Time
}

func (a *app) setup(cmd *cobra.Command) error {
	a.log = newLogger(cmd, a.verbose)
	if a.now == nil {
		a.now = time.Now
	}
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.log.Debug("config loaded",
		"file", cfg.File, "db", cfg.DBPath, "prefix", cfg.Prefix)
	return nil
}

func (a *app) openDB() (*db.DB, error) {
	database, err := db.Open(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

// resolve returns the runs selected by patterns, failing with
// record.ErrEmptyRunSet when there are none.
func (a *app) resolve(
	ctx context.Context, patterns, unless []string,
) ([]record.Run, error) {
	database, err := a.openDB()
	if err != nil {
		return nil, err
	}
	defer database.Close()

	runs, err := database.ResolveRuns(ctx, db.RunFilter{
		Patterns: patterns,
		Unless:   unless,
	})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, record.ErrEmptyRunSet
	}
	a.log.Debug("resolved runs", "count", len(runs))
	return runs, nil
}

// parseCommands models the command of every run.
func parseCommands(runs []record.Run) ([]*command.Command, error) {
	out := make([]*command.Command, len(runs))
	for i, r := range runs {
		c, err := command.Parse(r.Command)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", r.Path, err)
		}
		out[i] = c
	}
	return out, nil
}

// addQueryFlags registers the --unless flag shared by every
// command that selects runs by pattern.
func addQueryFlags(cmd *cobra.Command, unless *[]string) {
	cmd.Flags().StringArrayVar(unless, "unless", nil,
		"Leave out runs matching this pattern (repeatable)")
}
