// Package pipeline resolves the files to operate on and runs the formatter
// pipeline against them, folding each tool's exit code into one outcome.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/deixis/pyfmt/internal/config"
	"github.com/deixis/pyfmt/internal/report"
	"github.com/deixis/pyfmt/internal/runner"
	"github.com/deixis/pyfmt/internal/tool"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) (*runner.Result, error)
}

// FileSelector finds changed files for differential mode.
// Implemented by gitdiff.Selector.
type FileSelector interface {
	Select(ctx context.Context, branch, subtree string) ([]string, error)
}

// Outcome is the aggregated result of one pipeline execution.
type Outcome = report.Run

// Engine holds shared dependencies for pipeline runs.
type Engine struct {
	Runner   CommandRunner
	Selector FileSelector
	Tools    []tool.Tool  // executed in slice order
	Store    report.Store // optional; every outcome is saved when set
	Logger   *slog.Logger
}

// NewEngine builds an Engine running the standard tool sequence
// configured by cfg.
func NewEngine(cfg *config.Config, r CommandRunner, sel FileSelector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		Runner:   r,
		Selector: sel,
		Tools:    tool.Pipeline(cfg),
		Logger:   logger,
	}
}
