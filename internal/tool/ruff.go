package tool

// Ruff lints and applies automatic fixes. In mutating mode remaining
// violations never fail the run (--exit-zero).
type Ruff struct {
	Python string
	Extra  []string
}

func (Ruff) Name() string { return "ruff" }

func (t Ruff) Args(opts Options) []string {
	argv := append(module(t.Python, "ruff"), "check")
	if opts.DryRun {
		argv = append(argv, "--diff")
	} else {
		argv = append(argv, "--fix", "--exit-zero")
	}
	return append(argv, t.Extra...)
}
