package tool

// Isort sorts import blocks using the black-compatible profile.
type Isort struct {
	Python string
	Extra  []string
}

func (Isort) Name() string { return "isort" }

func (t Isort) Args(opts Options) []string {
	argv := append(module(t.Python, "isort"), "--profile", "black")
	if opts.DryRun {
		// --check-only makes isort exit nonzero when a file would change.
		argv = append(argv, "--diff", "--check-only")
	}
	if v := compactVersion(opts.PyVersion); v != "" {
		argv = append(argv, "--py", v)
	}
	return append(argv, t.Extra...)
}
