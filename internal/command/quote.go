package command

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrUnquotable is returned when a string cannot be represented
// as a single bash word, such as one containing a NUL byte.
var ErrUnquotable = errors.New("cannot quote for shell")

// safeWord matches words any POSIX shell reads literally.
var safeWord = regexp.MustCompile(`^[A-Za-z0-9@%+=:,./_-]+$`)

// Quote returns s as a single bash word. Words that need no
// quoting come back unchanged; the empty string becomes ''.
//
// Control characters are kept inside plain single quotes rather
// than bash's $'...' form, which the tokenizer cannot read back.
func Quote(s string) (string, error) {
	if safeWord.MatchString(s) {
		return s, nil
	}
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnquotable, s, err)
	}
	if strings.HasPrefix(q, "$'") {
		return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'", nil
	}
	return q, nil
}

// Join quotes every word and joins them with single spaces.
func Join(words []string) (string, error) {
	quoted := make([]string, len(words))
	for i, w := range words {
		q, err := Quote(w)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " "), nil
}
