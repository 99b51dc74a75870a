// Package record holds the resolved run record shared by the run
// store and the renderers.
package record

import (
	"errors"
	"time"
)

// ErrEmptyRunSet is returned when a query resolves to no runs.
var ErrEmptyRunSet = errors.New("no runs match the given patterns")

// Run is one recorded invocation. Command is what the user asked
// to run; FullCommand adds the configured prefix and default flags.
type Run struct {
	Path        string
	Command     string
	FullCommand string
	Description string
	Commit      string
	Datetime    time.Time
}
