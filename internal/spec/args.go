package spec

import (
	"strings"

	"github.com/wesm/runs/internal/command"
)

// ArgSpec is the to-json form of a batch: valued flags collapse per
// key into Args, and each distinct combination of bare flags used
// by a command is listed once in Flags. Fields are declared in
// sorted order so encoding/json emits sorted keys.
type ArgSpec struct {
	Args    map[string]Setting `json:"args,omitempty"`
	Command string             `json:"command,omitempty"`
	Flags   [][]string         `json:"flags,omitempty"`
}

// BuildArgs builds an ArgSpec from commands that share all of their
// positional arguments. Keys in exclude are skipped.
func BuildArgs(commands []*command.Command, exclude []string) (*ArgSpec, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}
	if err := checkStems(commands, (*command.Command).Positionals); err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		excluded[k] = true
	}

	sets := make(map[string]*OrderedSet[Value])
	combos := NewOrderedSet[string]()
	var flags [][]string
	for _, c := range commands {
		names := []string{}
		for _, f := range c.Flags() {
			if excluded[f.Key] {
				continue
			}
			if f.Kind == command.FlagBare {
				names = append(names, f.Key)
				continue
			}
			set, ok := sets[f.Key]
			if !ok {
				set = NewOrderedSet[Value]()
				sets[f.Key] = set
			}
			set.Add(ParseValue(f.Value))
		}
		if combos.Add(strings.Join(names, "\x00")) {
			flags = append(flags, names)
		}
	}

	stem, err := command.Join(commands[0].Positionals())
	if err != nil {
		return nil, err
	}
	args := make(map[string]Setting, len(sets))
	for k, set := range sets {
		args[k] = Collapse(set)
	}
	return &ArgSpec{Command: stem, Args: args, Flags: flags}, nil
}
