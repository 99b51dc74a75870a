package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) *Command {
	t.Helper()
	c, err := Parse(s)
	require.NoError(t, err, "Parse(%q)", s)
	return c
}

// groupWords flattens groups into [][]string for comparison.
func groupWords(c *Command) [][]string {
	var out [][]string
	for _, g := range c.Groups() {
		out = append(out, g.Words())
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		word string
		want Token
	}{
		{"train.py", Token{Kind: Positional, Raw: "train.py"}},
		{"-", Token{Kind: Positional, Raw: "-"}},
		{"--", Token{Kind: Positional, Raw: "--"}},
		{"---", Token{Kind: Positional, Raw: "---"}},
		{"--verbose", Token{Kind: FlagBare, Raw: "--verbose", Key: "verbose"}},
		{"-v", Token{Kind: FlagBare, Raw: "-v", Key: "v"}},
		{"--lr=0.1", Token{Kind: FlagKV, Raw: "--lr=0.1", Key: "lr", Value: "0.1"}},
		{"-n=3", Token{Kind: FlagKV, Raw: "-n=3", Key: "n", Value: "3"}},
		{"--opt=a=b", Token{Kind: FlagKV, Raw: "--opt=a=b", Key: "opt", Value: "a=b"}},
		{`--name="x y"`, Token{Kind: FlagKV, Raw: `--name="x y"`, Key: "name", Value: "x y"}},
		{"--empty=", Token{Kind: FlagKV, Raw: "--empty=", Key: "empty", Value: ""}},
		{"--=oops", Token{Kind: FlagBare, Raw: "--=oops", Key: "=oops"}},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Classify(tt.word)); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tt.word, diff)
			}
		})
	}
}

func TestParseGroups(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "stem only",
			input: "python train.py",
			want:  [][]string{{"python", "train.py"}},
		},
		{
			name:  "stem and flags",
			input: "python train.py --lr=0.1 --verbose",
			want: [][]string{
				{"python", "train.py"},
				{"--lr=0.1", "--verbose"},
			},
		},
		{
			name:  "alternating groups",
			input: "prog a --x=1 b c --y",
			want: [][]string{
				{"prog", "a"},
				{"--x=1"},
				{"b", "c"},
				{"--y"},
			},
		},
		{
			name:  "leading flag has empty stem",
			input: "--x=1 prog",
			want:  [][]string{nil, {"--x=1"}, {"prog"}},
		},
		{
			name:  "quoted value stays one word",
			input: `prog --name='hello world' "arg two"`,
			want: [][]string{
				{"prog"},
				{"--name=hello world"},
				{"arg two"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustParse(t, tt.input)
			if diff := cmp.Diff(tt.want, groupWords(c)); diff != "" {
				t.Errorf("groups mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseUnbalancedQuote(t *testing.T) {
	_, err := Parse(`prog --name="unterminated`)
	require.Error(t, err)
}

func TestAccessors(t *testing.T) {
	c := mustParse(t, "prog sub --a=1 --flag pos --b=x")

	assert.Equal(t, []string{"prog", "sub"}, c.Stem())
	assert.Equal(t, []string{"prog", "sub", "pos"}, c.Positionals())
	assert.True(t, c.HasFlags())
	assert.True(t, c.HasBareFlag("flag"))
	assert.False(t, c.HasBareFlag("a"))

	var keys []string
	for _, f := range c.Flags() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"a", "flag", "b"}, keys)

	bare := mustParse(t, "prog sub")
	assert.False(t, bare.HasFlags())
	assert.Empty(t, bare.Flags())
}

func TestValidateSingleStem(t *testing.T) {
	assert.NoError(t, mustParse(t, "prog a --x=1 --y").ValidateSingleStem())
	assert.NoError(t, mustParse(t, "prog").ValidateSingleStem())

	err := mustParse(t, "prog a --x=1 b").ValidateSingleStem()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMultiplePositionalGroups))
	assert.Contains(t, err.Error(), "prog a")
}

func TestExclude(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		targets []string
		want    []string
	}{
		{
			name:    "prefix sequence",
			input:   "CUDA_VISIBLE_DEVICES=0 python train.py --lr=1",
			targets: []string{"CUDA_VISIBLE_DEVICES=0 python"},
			want:    []string{"train.py", "--lr=1"},
		},
		{
			name:    "whole flag",
			input:   "python train.py --logdir=/tmp/x --lr=1",
			targets: []string{"--logdir=/tmp/x"},
			want:    []string{"python", "train.py", "--lr=1"},
		},
		{
			name:    "missing target is a no-op",
			input:   "python train.py --lr=1",
			targets: []string{"--seed=3"},
			want:    []string{"python", "train.py", "--lr=1"},
		},
		{
			name:    "blank target ignored",
			input:   "python train.py",
			targets: []string{"", "   "},
			want:    []string{"python", "train.py"},
		},
		{
			name:    "substring inside word",
			input:   "python train.py --name=run-debug",
			targets: []string{"-debug"},
			want:    []string{"python", "train.py", "--name=run"},
		},
		{
			name:    "quoted value is not split",
			input:   `prog --msg='a --b c'`,
			targets: []string{"--b"},
			want:    []string{"prog", "--msg=a  c"},
		},
		{
			name:    "repeated occurrences",
			input:   "prog --x --y --x",
			targets: []string{"--x"},
			want:    []string{"prog", "--y"},
		},
		{
			name:    "removal exposing a new match",
			input:   "a a b b",
			targets: []string{"a b"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mustParse(t, tt.input).Exclude(tt.targets...)
			require.NoError(t, err)
			var words []string
			for _, tok := range got.Tokens() {
				words = append(words, tok.Raw)
			}
			if diff := cmp.Diff(tt.want, words); diff != "" {
				t.Errorf("Exclude mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExcludeIdempotent(t *testing.T) {
	inputs := []string{
		"python train.py --lr=1 --logdir=runs/a",
		"aab ab --abab=ab",
		"prog x y x y x",
	}
	targets := []string{"ab", "x y", "--lr=1", "python", "runs/"}

	for _, in := range inputs {
		for _, target := range targets {
			once, err := mustParse(t, in).Exclude(target)
			require.NoError(t, err)
			twice, err := once.Exclude(target)
			require.NoError(t, err)
			assert.Equal(t, once.Tokens(), twice.Tokens(),
				"exclude(%q, %q) is not idempotent", in, target)
		}
	}
}

func TestRenderRoundTrip(t *testing.T) {
	inputs := []string{
		"python train.py --lr=0.1 --verbose",
		`prog --name="hello world" --glob='*.txt'`,
		`prog 'it'"'"'s' --x=$HOME --y='a;b|c'`,
		"prog --empty= ''",
		"prog",
		"prog \"a\tb\" --x=1",
		"prog --msg=\"line1\nline2\"",
		"prog 'it'\"'\"'s\ttab'",
		"prog --raw=\"a\xffb\" c\x01d",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			c := mustParse(t, in)
			out, err := c.Render()
			require.NoError(t, err)

			relexed, err := shlex.Split(out)
			require.NoError(t, err)
			want, err := shlex.Split(in)
			require.NoError(t, err)
			if diff := cmp.Diff(want, relexed); diff != "" {
				t.Errorf("round trip of %q via %q (-want +got):\n%s", in, out, diff)
			}
			assert.Equal(t, groupWords(c), groupWords(mustParse(t, out)))
		})
	}
}

func TestRenderUnquotable(t *testing.T) {
	c := FromTokens([]Token{Classify("prog"), Classify("bad\x00word")})
	_, err := c.Render()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnquotable))
	assert.Contains(t, c.String(), "prog")
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", "''"},
		{"a b", "'a b'"},
		{"--lr=0.1", "--lr=0.1"},
		{"user@host:/tmp/a,b+c%", "user@host:/tmp/a,b+c%"},
		{"a\tb", "'a\tb'"},
		{"it's\n", `'it'"'"'s` + "\n'"},
	}
	for _, tt := range tests {
		got, err := Quote(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	joined, err := Join([]string{"echo", "a b", "$x"})
	require.NoError(t, err)
	words, err := shlex.Split(joined)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "a b", "$x"}, words)
}
