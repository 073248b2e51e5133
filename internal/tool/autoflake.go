package tool

// Autoflake removes unused imports and variables.
// Without --in-place it prints a diff and leaves files alone.
type Autoflake struct {
	Python string
	Extra  []string
}

func (Autoflake) Name() string { return "autoflake" }

func (t Autoflake) Args(opts Options) []string {
	argv := module(t.Python, "autoflake")
	if !opts.DryRun {
		argv = append(argv, "--in-place")
	}
	argv = append(argv,
		"--remove-unused-variables",
		"--remove-all-unused-imports",
		"--recursive",
	)
	return append(argv, t.Extra...)
}
