package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesm/runs/internal/record"
	"github.com/wesm/runs/internal/reproduce"
)

func newReproduceCmd(a *app) *cobra.Command {
	var (
		unless  []string
		exclude []string
		opts    reproduce.Options
	)
	cmd := &cobra.Command{
		Use:   "reproduce PATTERN...",
		Short: "Print the commands that recreate runs",
		Long: `Print, for each revision the selected runs were recorded at, a
git checkout line followed by the runs new invocation that records
those runs again. The configured prefix and default flags are removed
from every command first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.resolve(cmd.Context(), args, unless)
			if err != nil {
				return err
			}

			opts.Exclude = append([]string{a.cfg.Prefix}, exclude...)
			opts.ExcludeFor = func(r record.Run) []string {
				return a.cfg.InterpolatedFlags(r.Path)
			}
			lines, err := reproduce.Render(runs, opts)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}

	f := cmd.Flags()
	addQueryFlags(cmd, &unless)
	f.StringVar(&opts.Path, "path", "",
		"Record the runs under this path instead")
	f.StringVar(&opts.Description, "description", "",
		"Replace every description")
	f.String("prefix", "", "Prefix to remove from every command")
	f.StringArrayVar(&exclude, "exclude", nil,
		"Text to remove from every command (repeatable)")
	f.BoolVar(&opts.Porcelain, "porcelain", false,
		"Print only the commands, without the banner")
	return cmd
}
