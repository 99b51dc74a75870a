package command

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Kind classifies a lexed token.
type Kind int

const (
	// Positional is any token that is not a flag.
	Positional Kind = iota
	// FlagKV is a flag carrying a value: --key=value.
	FlagKV
	// FlagBare is a flag without a value: --flag.
	FlagBare
)

func (k Kind) String() string {
	switch k {
	case Positional:
		return "positional"
	case FlagKV:
		return "flag"
	case FlagBare:
		return "bare flag"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Token is one shell word of a command. Raw is the word after
// shell lexing (quotes removed); Key and Value are only set for
// flags.
type Token struct {
	Kind  Kind
	Raw   string
	Key   string
	Value string
}

// IsFlag reports whether the token is a flag of either kind.
func (t Token) IsFlag() bool {
	return t.Kind == FlagKV || t.Kind == FlagBare
}

// Tokenize lexes s with shell quoting rules and classifies every
// word.
func Tokenize(s string) ([]Token, error) {
	words, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("lexing %q: %w", s, err)
	}
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Classify(w)
	}
	return tokens, nil
}

// Classify turns a single lexed word into a Token.
//
// Words made only of dashes ("-", "--") stay positional. A flag
// with an empty key ("--=x") cannot be keyed and is recovered as a
// bare flag named by everything after the dashes.
func Classify(word string) Token {
	body := strings.TrimLeft(word, "-")
	if body == word || body == "" {
		return Token{Kind: Positional, Raw: word}
	}
	key, value, ok := strings.Cut(body, "=")
	if !ok || key == "" {
		return Token{Kind: FlagBare, Raw: word, Key: body}
	}
	return Token{
		Kind:  FlagKV,
		Raw:   word,
		Key:   key,
		Value: unwrapDoubleQuotes(value),
	}
}

// unwrapDoubleQuotes drops one pair of surrounding double quotes
// that survived lexing (for example from an escaped "--k=\"v\"").
func unwrapDoubleQuotes(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}
