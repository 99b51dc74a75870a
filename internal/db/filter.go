package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wesm/runs/internal/record"
)

// ErrInvalidPattern is returned for a malformed path pattern.
var ErrInvalidPattern = errors.New("invalid run pattern")

// RunFilter selects runs by path. A run matches when any of
// Patterns matches its path or one of its ancestors, and no Unless
// pattern does. An empty Patterns list matches every run.
//
// Patterns are doublestar globs over "/" separated paths, so
// "sweep" selects sweep and everything below it, and "sweep/*/0"
// selects the first run of each sub-sweep.
type RunFilter struct {
	Patterns []string
	Unless   []string
}

// Validate reports the first malformed pattern.
func (f RunFilter) Validate() error {
	for _, list := range [][]string{f.Patterns, f.Unless} {
		for _, p := range list {
			if !doublestar.ValidatePattern(cleanPattern(p)) {
				return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
			}
		}
	}
	return nil
}

// Match reports whether the run at path is selected. Patterns must
// already be valid.
func (f RunFilter) Match(path string) bool {
	if len(f.Patterns) > 0 && !anyMatch(f.Patterns, path) {
		return false
	}
	return !anyMatch(f.Unless, path)
}

func anyMatch(patterns []string, path string) bool {
	for _, p := range patterns {
		p = cleanPattern(p)
		for _, anc := range ancestors(path) {
			if ok, _ := doublestar.Match(p, anc); ok {
				return true
			}
		}
	}
	return false
}

// ancestors returns path followed by each of its parents, nearest
// first.
func ancestors(path string) []string {
	path = strings.Trim(path, "/")
	out := []string{path}
	for {
		i := strings.LastIndexByte(path, '/')
		if i < 0 {
			return out
		}
		path = path[:i]
		out = append(out, path)
	}
}

func cleanPattern(p string) string {
	return strings.Trim(p, "/")
}

// hasMeta reports whether p uses any glob syntax.
func hasMeta(p string) bool {
	return strings.ContainsAny(p, `*?[{\`)
}

// escapeLike escapes SQL LIKE wildcard characters so user
// input is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`, `%`, `\%`, `_`, `\_`,
	)
	return r.Replace(s)
}

// literalWhere narrows the query when every pattern is a plain
// path: each selects itself and its descendants.
func literalWhere(patterns []string) (string, []any, bool) {
	if len(patterns) == 0 {
		return "", nil, false
	}
	var preds []string
	var args []any
	for _, p := range patterns {
		if hasMeta(p) {
			return "", nil, false
		}
		p = cleanPattern(p)
		preds = append(preds, `(path = ? OR path LIKE ? ESCAPE '\')`)
		args = append(args, p, escapeLike(p)+"/%")
	}
	return "(" + strings.Join(preds, " OR ") + ")", args, true
}

// ResolveRuns returns the runs selected by f in ListRuns order.
func (db *DB) ResolveRuns(
	ctx context.Context, f RunFilter,
) ([]record.Run, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if len(f.Patterns) == 0 && len(f.Unless) == 0 {
		return db.ListRuns(ctx)
	}

	where, args, ok := literalWhere(f.Patterns)
	if !ok {
		where, args = "1=1", nil
	}
	runs, err := db.queryRuns(ctx, where, args)
	if err != nil {
		return nil, err
	}

	var out []record.Run
	for _, r := range runs {
		if f.Match(r.Path) {
			out = append(out, r)
		}
	}
	return out, nil
}
