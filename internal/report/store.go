// Package report persists pipeline runs so that the full output of each
// tool can be retrieved after the run summary has been returned.
package report

import (
	"errors"
	"time"

	"github.com/deixis/pyfmt/internal/runner"
)

// ErrNotFound is returned when a run ID is unknown to a store.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves runs.
type Store interface {
	Save(run *Run) error
	Load(runID string) (*Run, error)
}

// Run is the aggregated outcome of one pipeline execution.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	DryRun    bool      `json:"dry_run"`
	Branch    string    `json:"branch,omitempty"` // reference branch in differential mode
	Files     []string  `json:"files"`
	ExitCode  int       `json:"exit_code"`
	Skipped   bool      `json:"skipped,omitempty"` // differential mode found nothing to do
	Steps     []Step    `json:"steps,omitempty"`
}

// Step holds the result of running one tool.
type Step struct {
	Name     string        `json:"name"`
	RunID    string        `json:"run_id"`
	Argv     []string      `json:"argv"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
}

// NewStep records res as the outcome of the named tool.
func NewStep(name string, res *runner.Result) Step {
	return Step{
		Name:     name,
		RunID:    res.RunID,
		Argv:     res.Argv,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Duration: res.Duration,
	}
}

// Step returns the step with the given tool name.
func (r *Run) Step(name string) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// Failed returns the steps that exited nonzero, in execution order.
func (r *Run) Failed() []Step {
	var out []Step
	for _, s := range r.Steps {
		if s.ExitCode != 0 {
			out = append(out, s)
		}
	}
	return out
}
