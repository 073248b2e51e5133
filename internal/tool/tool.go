// Package tool adapts the external Python formatters and linters to a
// common invocation contract.
package tool

import (
	"context"
	"strings"

	"github.com/deixis/pyfmt/internal/config"
	"github.com/deixis/pyfmt/internal/runner"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) (*runner.Result, error)
}

// Options are the pipeline parameters every tool translates into flags.
type Options struct {
	DryRun    bool   // report intended changes without touching files
	PyVersion string // target version hint, e.g. "311" or "3.11"; empty lets the tool decide
}

// Tool builds the command line for one external tool. Implementations are
// stateless; the file list is appended by Apply.
type Tool interface {
	Name() string
	Args(opts Options) []string
}

// Apply runs t against files. Files are appended as trailing positional
// arguments; an empty list invokes the tool without paths.
func Apply(ctx context.Context, r CommandRunner, t Tool, files []string, opts Options) (*runner.Result, error) {
	argv := t.Args(opts)
	argv = append(argv[:len(argv):len(argv)], files...)
	return r.Run(ctx, argv, "")
}

// Pipeline returns the tools in execution order: unused-code removal,
// import sorting, reformatting, then lint fixes.
func Pipeline(cfg *config.Config) []Tool {
	py := cfg.Interpreter()
	return []Tool{
		Autoflake{Python: py, Extra: cfg.ToolArgs("autoflake")},
		Isort{Python: py, Extra: cfg.ToolArgs("isort")},
		Black{Python: py, Extra: cfg.ToolArgs("black")},
		Ruff{Python: py, Extra: cfg.ToolArgs("ruff")},
	}
}

// Names returns the names of tools, in order.
func Names(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}

// compactVersion turns "3.11" into "311" and leaves "311" alone.
func compactVersion(v string) string {
	return strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(v), "py"), ".", "")
}

func module(python, name string) []string {
	return []string{python, "-m", name}
}
