// Package command models recorded shell commands as a stem of
// positional words followed by alternating runs of flags and
// positionals, and renders them back into shell-safe strings.
package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/shlex"
)

// ErrMultiplePositionalGroups is returned by ValidateSingleStem
// when positional words follow the first run of flags.
var ErrMultiplePositionalGroups = errors.New(
	"command contains multiple positional argument groups",
)

// Group is one maximal run of same-kind tokens.
type Group struct {
	Flags  bool
	Tokens []Token
}

// Words returns the raw words of the group, or nil when empty.
func (g Group) Words() []string {
	if len(g.Tokens) == 0 {
		return nil
	}
	words := make([]string, len(g.Tokens))
	for i, t := range g.Tokens {
		words[i] = t.Raw
	}
	return words
}

// Command is a parsed shell command. Groups[0] is always the stem
// (possibly empty); later groups alternate flags, positionals,
// flags, and so on.
type Command struct {
	tokens []Token
	groups []Group
}

// Parse lexes s and builds its group structure.
func Parse(s string) (*Command, error) {
	tokens, err := Tokenize(s)
	if err != nil {
		return nil, err
	}
	return FromTokens(tokens), nil
}

// FromTokens builds a Command from already classified tokens.
func FromTokens(tokens []Token) *Command {
	c := &Command{tokens: slices.Clone(tokens)}
	c.groups = []Group{{}}
	for _, t := range c.tokens {
		last := &c.groups[len(c.groups)-1]
		if t.IsFlag() == last.Flags {
			last.Tokens = append(last.Tokens, t)
			continue
		}
		c.groups = append(c.groups, Group{
			Flags:  t.IsFlag(),
			Tokens: []Token{t},
		})
	}
	return c
}

// Tokens returns a copy of every token in order.
func (c *Command) Tokens() []Token {
	return slices.Clone(c.tokens)
}

// Groups returns the stem followed by the remaining groups.
func (c *Command) Groups() []Group {
	return slices.Clone(c.groups)
}

// Stem returns the leading positional words.
func (c *Command) Stem() []string {
	return c.groups[0].Words()
}

// Positionals returns every positional word, stem included.
func (c *Command) Positionals() []string {
	var out []string
	for _, t := range c.tokens {
		if !t.IsFlag() {
			out = append(out, t.Raw)
		}
	}
	return out
}

// Flags returns every flag token across all flag groups.
func (c *Command) Flags() []Token {
	var out []Token
	for _, t := range c.tokens {
		if t.IsFlag() {
			out = append(out, t)
		}
	}
	return out
}

// HasFlags reports whether any flag group exists.
func (c *Command) HasFlags() bool {
	return len(c.groups) > 1
}

// HasBareFlag reports whether a valueless flag named key is
// present.
func (c *Command) HasBareFlag(key string) bool {
	for _, t := range c.tokens {
		if t.Kind == FlagBare && t.Key == key {
			return true
		}
	}
	return false
}

// ValidateSingleStem fails when a positional group appears after
// the stem. Such commands cannot be folded into a cross-product
// spec.
func (c *Command) ValidateSingleStem() error {
	for _, g := range c.groups[1:] {
		if !g.Flags {
			return fmt.Errorf("%w: %s", ErrMultiplePositionalGroups, c)
		}
	}
	return nil
}

// Exclude returns a new Command with every occurrence of each
// target removed. Targets are lexed like commands: a multi-word
// target removes matching runs of whole words, a single-word target
// removes matching words and otherwise its literal text inside
// words. Removal repeats until nothing changes, so excluding twice
// is the same as excluding once.
func (c *Command) Exclude(targets ...string) (*Command, error) {
	words := make([]string, len(c.tokens))
	for i, t := range c.tokens {
		words[i] = t.Raw
	}
	for _, target := range targets {
		if strings.TrimSpace(target) == "" {
			continue
		}
		parts, err := shlex.Split(target)
		if err != nil {
			return nil, fmt.Errorf("lexing exclusion %q: %w", target, err)
		}
		if len(parts) == 0 {
			continue
		}
		for {
			next := removeWords(words, parts)
			if slices.Equal(next, words) {
				break
			}
			words = next
		}
	}
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Classify(w)
	}
	return FromTokens(tokens), nil
}

func removeWords(words, parts []string) []string {
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		if i+len(parts) <= len(words) &&
			slices.Equal(words[i:i+len(parts)], parts) {
			i += len(parts)
			continue
		}
		w := words[i]
		if len(parts) == 1 && parts[0] != "" {
			w = strings.ReplaceAll(w, parts[0], "")
			if w == "" {
				i++
				continue
			}
		}
		out = append(out, w)
		i++
	}
	return out
}

// Render joins the command back into one shell-safe line.
func (c *Command) Render() (string, error) {
	words := make([]string, len(c.tokens))
	for i, t := range c.tokens {
		words[i] = t.Raw
	}
	return Join(words)
}

// String renders the command, falling back to unquoted words when
// a word cannot be quoted. Use Render where output must be safe.
func (c *Command) String() string {
	s, err := c.Render()
	if err != nil {
		words := make([]string, len(c.tokens))
		for i, t := range c.tokens {
			words[i] = t.Raw
		}
		return strings.Join(words, " ")
	}
	return s
}
