package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deixis/pyfmt/internal/report"
	"github.com/deixis/pyfmt/internal/tool"
)

// ErrNoSelector is returned when differential mode is requested but the
// Engine has no FileSelector.
var ErrNoSelector = errors.New("differential mode requires a file selector")

// Request describes one pipeline run.
type Request struct {
	Files       []string // explicit files; used verbatim when FastBranch is empty
	DefaultRoot string   // fallback target, and the managed subtree in differential mode
	FastBranch  string   // reference branch; enables differential mode
	DryRun      bool
	PyVersion   string
}

// Execute resolves the file set and runs every tool in order.
//
// The outcome's exit code is that of the last tool that exited nonzero, or 0
// if none did. A tool that cannot be spawned aborts the run with an error and
// later tools do not run.
func (e *Engine) Execute(ctx context.Context, req Request) (*Outcome, error) {
	run := &Outcome{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		DryRun:    req.DryRun,
		Branch:    req.FastBranch,
	}

	files, err := e.ResolveFiles(ctx, req)
	if err != nil {
		return nil, err
	}
	run.Files = files

	if req.FastBranch != "" && len(files) == 0 {
		e.Logger.Warn(fmt.Sprintf("no modified files found vs branch %s, nothing to do", req.FastBranch))
		run.Skipped = true
		e.save(run)
		return run, nil
	}

	e.Logger.Info("files to format", "count", len(files))
	e.Logger.Debug("file set", "files", strings.Join(files, " "))

	opts := tool.Options{DryRun: req.DryRun, PyVersion: req.PyVersion}
	for _, t := range e.Tools {
		res, err := tool.Apply(ctx, e.Runner, t, files, opts)
		if err != nil {
			return nil, fmt.Errorf("running %s: %w", t.Name(), err)
		}

		run.Steps = append(run.Steps, report.NewStep(t.Name(), res))
		if res.ExitCode != 0 {
			run.ExitCode = res.ExitCode
		}
		e.logStep(t.Name(), req.DryRun, res.ExitCode, res.Stdout, res.Stderr)
	}

	e.Logger.Info("formatting complete", "exit_code", run.ExitCode)
	e.save(run)
	return run, nil
}

// ResolveFiles returns the file set for req. The first match wins:
// differential selection when FastBranch is set, then the explicit files,
// then DefaultRoot on its own.
func (e *Engine) ResolveFiles(ctx context.Context, req Request) ([]string, error) {
	switch {
	case req.FastBranch != "":
		if e.Selector == nil {
			return nil, ErrNoSelector
		}
		files, err := e.Selector.Select(ctx, req.FastBranch, req.DefaultRoot)
		if err != nil {
			return nil, fmt.Errorf("selecting changed files: %w", err)
		}
		return files, nil
	case len(req.Files) > 0:
		return append([]string(nil), req.Files...), nil
	default:
		return []string{req.DefaultRoot}, nil
	}
}

// logStep surfaces tool output. Dry runs show everything so proposed
// changes can be reviewed; mutating runs only raise stderr on failure.
func (e *Engine) logStep(name string, dryRun bool, code int, stdout, stderr string) {
	logger := e.Logger.With("tool", name, "exit_code", code)
	if dryRun {
		logger.Info(fmt.Sprintf("%s stdout:\n%s", name, stdout))
		logger.Info(fmt.Sprintf("%s stderr:\n%s", name, stderr))
		return
	}
	if stdout != "" {
		logger.Debug(fmt.Sprintf("%s stdout:\n%s", name, stdout))
	}
	if code != 0 && stderr != "" {
		logger.Warn(fmt.Sprintf("%s stderr:\n%s", name, stderr))
	}
}

func (e *Engine) save(run *Outcome) {
	if e.Store == nil {
		return
	}
	if err := e.Store.Save(run); err != nil {
		e.Logger.Warn("could not store run", "run_id", run.ID, "error", err)
	}
}
