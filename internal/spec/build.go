package spec

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/wesm/runs/internal/command"
)

// Build infers a SpecObj from commands that share a stem. Flag keys
// in exclude are left out. Values seen once per key collapse to a
// fixed setting; keys that varied become list settings.
//
// Valueless flags are collected under BareKey. When a bare flag is
// missing from some command, or some command has no flags at all,
// the empty string joins BareKey's values so regeneration also
// produces the variant without it.
func Build(commands []*command.Command, exclude []string) (*SpecObj, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}
	if err := checkStems(commands, (*command.Command).Stem); err != nil {
		return nil, err
	}
	for _, c := range commands {
		if err := c.ValidateSingleStem(); err != nil {
			return nil, err
		}
	}

	excluded := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		excluded[k] = true
	}
	bareCommand := slices.ContainsFunc(commands, func(c *command.Command) bool {
		return !c.HasFlags()
	})

	sets := make(map[string]*OrderedSet[Value])
	add := func(key string, v Value) {
		set, ok := sets[key]
		if !ok {
			set = NewOrderedSet[Value]()
			sets[key] = set
		}
		set.Add(v)
	}

	valued := make(map[string]bool)
	bare := make(map[string]bool)
	for _, c := range commands {
		for _, f := range c.Flags() {
			if excluded[f.Key] {
				continue
			}
			switch f.Kind {
			case command.FlagKV:
				valued[f.Key] = true
				add(f.Key, ParseValue(f.Value))
			case command.FlagBare:
				bare[f.Key] = true
				add(BareKey, StringValue(f.Key))
				for _, other := range commands {
					if bareCommand || !other.HasBareFlag(f.Key) {
						add(BareKey, StringValue(""))
					}
				}
			}
		}
	}

	var conflicts []string
	for k := range bare {
		if valued[k] {
			conflicts = append(conflicts, k)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, fmt.Errorf(
			"%w: %s", ErrFlagArity, strings.Join(conflicts, ", "),
		)
	}

	stem, err := command.Join(commands[0].Stem())
	if err != nil {
		return nil, err
	}
	flags := make(map[string]Setting, len(sets))
	for k, set := range sets {
		flags[k] = Collapse(set)
	}
	return &SpecObj{Command: stem, Flags: flags}, nil
}

// checkStems fails with every command listed when the words picked
// by stem differ anywhere in the batch.
func checkStems(
	commands []*command.Command,
	stem func(*command.Command) []string,
) error {
	want := stem(commands[0])
	for _, c := range commands[1:] {
		if slices.Equal(stem(c), want) {
			continue
		}
		lines := make([]string, len(commands))
		for i, c := range commands {
			lines[i] = c.String()
		}
		return fmt.Errorf(
			"%w:\n%s", ErrStemMismatch, strings.Join(lines, "\n"),
		)
	}
	return nil
}
