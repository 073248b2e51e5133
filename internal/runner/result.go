package runner

import "time"

// Result holds the output of a command execution.
type Result struct {
	RunID     string        `json:"run_id"`    // unique identifier for this run
	Argv      []string      `json:"argv"`      // the command as spawned
	ExitCode  int           `json:"exit_code"` // process exit code; 128+signal when killed by a signal
	Stdout    string        `json:"stdout"`    // captured stdout, UTF-8 with replacement
	Stderr    string        `json:"stderr"`    // captured stderr, UTF-8 with replacement
	Duration  time.Duration `json:"duration"`
	Truncated bool          `json:"truncated,omitempty"` // true if output exceeded MaxOutput
}

// OK reports whether the process exited with status 0.
func (r *Result) OK() bool {
	return r.ExitCode == 0
}
