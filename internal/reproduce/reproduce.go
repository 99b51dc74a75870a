// Package reproduce renders the shell lines that check out each
// recorded revision and recreate its runs.
package reproduce

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wesm/runs/internal/command"
	"github.com/wesm/runs/internal/record"
)

// Banner introduces the rendered lines for a human reader.
const Banner = "To reproduce:"

// BannerStyle highlights the banner. It degrades to plain text when
// output is not a terminal.
var BannerStyle = lipgloss.NewStyle().Bold(true).Foreground(
	lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"},
)

const continuation = " \\\n  "

// Options controls Render.
type Options struct {
	// Path, when set, replaces each run's own path. Runs sharing a
	// revision get Path/0, Path/1, ... instead.
	Path string
	// Description, when set, replaces each run's description.
	Description string
	// Exclude is removed from every command (a launch prefix,
	// unwanted flags).
	Exclude []string
	// ExcludeFor returns extra strings to remove from one run's
	// command, such as default flags interpolated with its path.
	ExcludeFor func(record.Run) []string
	// Porcelain drops the banner.
	Porcelain bool
}

// Render groups runs by commit in first-seen order and returns, per
// group, a checkout line followed by one "runs new" line (a
// backslash-continued block when the group holds several runs).
// Nothing is returned when any run fails to render.
func Render(runs []record.Run, opts Options) ([]string, error) {
	if len(runs) == 0 {
		return nil, record.ErrEmptyRunSet
	}

	var commits []string
	groups := make(map[string][]record.Run)
	for _, r := range runs {
		if _, ok := groups[r.Commit]; !ok {
			commits = append(commits, r.Commit)
		}
		groups[r.Commit] = append(groups[r.Commit], r)
	}

	var lines []string
	if !opts.Porcelain {
		lines = append(lines, BannerStyle.Render(Banner))
	}
	for _, commit := range commits {
		checkout, err := command.Join([]string{"git", "checkout", commit})
		if err != nil {
			return nil, err
		}
		block, err := renderGroup(groups[commit], opts)
		if err != nil {
			return nil, err
		}
		lines = append(lines, checkout, block)
	}
	return lines, nil
}

func renderGroup(runs []record.Run, opts Options) (string, error) {
	if len(runs) == 1 {
		p, cmd, desc, err := fields(runs[0], 0, 1, opts)
		if err != nil {
			return "", err
		}
		words, err := quoteAll(p, cmd, "--description="+desc)
		if err != nil {
			return "", err
		}
		return "runs new " + strings.Join(words, " "), nil
	}

	parts := []string{"runs new"}
	for i, r := range runs {
		p, cmd, desc, err := fields(r, i, len(runs), opts)
		if err != nil {
			return "", err
		}
		words, err := quoteAll(
			"--path="+p, "--command="+cmd, "--description="+desc,
		)
		if err != nil {
			return "", err
		}
		parts = append(parts, words...)
	}
	return strings.Join(parts, continuation), nil
}

// fields returns the unquoted path, command and description for the
// i-th of n runs in a group.
func fields(r record.Run, i, n int, opts Options) (p, cmd, desc string, err error) {
	p = r.Path
	switch {
	case opts.Path != "" && n > 1:
		p = path.Join(opts.Path, strconv.Itoa(i))
	case opts.Path != "":
		p = opts.Path
	}

	desc = opts.Description
	if desc == "" {
		desc = strings.Trim(strings.Trim(r.Description, `"`), "'")
	}

	c, err := command.Parse(r.Command)
	if err != nil {
		return "", "", "", fmt.Errorf("run %s: %w", r.Path, err)
	}
	exclude := opts.Exclude
	if opts.ExcludeFor != nil {
		exclude = append(append([]string(nil), exclude...), opts.ExcludeFor(r)...)
	}
	if c, err = c.Exclude(exclude...); err != nil {
		return "", "", "", fmt.Errorf("run %s: %w", r.Path, err)
	}
	if cmd, err = c.Render(); err != nil {
		return "", "", "", fmt.Errorf("run %s: %w", r.Path, err)
	}
	return p, cmd, desc, nil
}

func quoteAll(words ...string) ([]string, error) {
	out := make([]string, len(words))
	for i, w := range words {
		q, err := command.Quote(w)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}
