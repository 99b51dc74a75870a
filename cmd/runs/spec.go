package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wesm/runs/internal/spec"
)

const jsonIndent = "    "

func newBuildSpecCmd(a *app) *cobra.Command {
	var (
		unless  []string
		exclude []string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "build-spec PATTERN...",
		Short: "Fold the selected runs into a cross-product spec",
		Long: `Collect, for every flag of the selected runs' commands, the
values it took. A flag that took one value is fixed; one that took
several becomes a list. Output is YAML, or the JSON accepted by
from-spec with --json.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.resolve(cmd.Context(), args, unless)
			if err != nil {
				return err
			}
			commands, err := parseCommands(runs)
			if err != nil {
				return err
			}
			s, err := spec.Build(commands, exclude)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			data, err := yaml.Marshal(s)
			if err != nil {
				return fmt.Errorf("encoding spec: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	addQueryFlags(cmd, &unless)
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil,
		"Flag key to leave out of the spec (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the spec as JSON")
	return cmd
}

func newToJSONCmd(a *app) *cobra.Command {
	var (
		unless  []string
		exclude []string
	)
	cmd := &cobra.Command{
		Use:   "to-json PATTERN...",
		Short: "Print the selected runs' arguments as JSON",
		Long: `Print the shared command, the values each key=value flag took,
and each distinct combination of bare flags of the selected runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.resolve(cmd.Context(), args, unless)
			if err != nil {
				return err
			}
			commands, err := parseCommands(runs)
			if err != nil {
				return err
			}
			as, err := spec.BuildArgs(commands, exclude)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), as)
		},
	}
	addQueryFlags(cmd, &unless)
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil,
		"Flag key to leave out (repeatable)")
	return cmd
}

func newFromSpecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "from-spec FILE|-",
		Short: "Print every command of a JSON spec",
		Long: `Read a spec as printed by build-spec --json and print one
concrete command per combination of its listed values. Use - to read
the spec from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			s, err := spec.ParseJSON(data)
			if err != nil {
				return err
			}
			lines, err := s.Expand()
			if err != nil {
				return err
			}
			a.log.Debug("expanded spec", "commands", len(lines))
			for _, l := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading spec: %w", err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
