package tool

// Black reformats code. In dry-run mode it only reports files that would change.
type Black struct {
	Python string
	Extra  []string
}

func (Black) Name() string { return "black" }

func (t Black) Args(opts Options) []string {
	argv := module(t.Python, "black")
	if v := compactVersion(opts.PyVersion); v != "" {
		argv = append(argv, "--target-version", "py"+v)
	}
	if opts.DryRun {
		argv = append(argv, "--check")
	}
	return append(argv, t.Extra...)
}
