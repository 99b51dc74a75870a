// Package timeutil formats and parses the UTC timestamps kept in
// the run store.
package timeutil

import "time"

// Parse reads an RFC3339 timestamp such as one written by
// Sortable. An empty string is the zero time.
func Parse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// sortableLayout is RFC3339 with a fixed-width fraction, so stored
// timestamps order correctly as plain strings.
const sortableLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Sortable returns t in UTC with nanosecond precision always
// written out, or "" for the zero time. Parse reads it back.
func Sortable(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sortableLayout)
}
