package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/pyfmt/internal/gitdiff"
	"github.com/deixis/pyfmt/internal/pipeline"
)

type runParams struct {
	Files []string `json:"files,omitempty" jsonschema:"Files or directories to format, absolute or relative to the repository root. Defaults to the configured root directory."`
	Fast  string   `json:"fast,omitempty" jsonschema:"Only format files changed against this branch, plus staged and unstaged changes. Overrides files."`
	Dry   bool     `json:"dry,omitempty" jsonschema:"Report intended changes without modifying files. Default: false."`
	Py    string   `json:"py,omitempty" jsonschema:"Target Python version hint passed to isort and black (e.g. 311 or 3.11)."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	loaded, engine := h.current()

	files := make([]string, 0, len(params.Files))
	for _, f := range params.Files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(loaded.RepoRoot, f)
		}
		if !gitdiff.Contains(loaded.RepoRoot, f) {
			return errorResult(fmt.Sprintf("%s is outside the repository %s", f, loaded.RepoRoot))
		}
		files = append(files, f)
	}

	py := params.Py
	if py == "" {
		py = loaded.Config.PyVersion
	}

	out, err := engine.Execute(ctx, pipeline.Request{
		Files:       files,
		DefaultRoot: loaded.RootDir(),
		FastBranch:  params.Fast,
		DryRun:      params.Dry,
		PyVersion:   py,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}
	return textResult(formatRun(out))
}

func formatRun(out *pipeline.Outcome) string {
	var b strings.Builder

	switch {
	case out.Skipped:
		fmt.Fprintln(&b, "Status: SKIPPED")
	case out.ExitCode == 0:
		fmt.Fprintln(&b, "Status: PASS")
	default:
		fmt.Fprintf(&b, "Status: FAIL (exit %d)\n", out.ExitCode)
	}
	fmt.Fprintf(&b, "Run: %s\n", out.ID)
	if out.DryRun {
		fmt.Fprintln(&b, "Mode: dry run")
	}
	fmt.Fprintln(&b)

	if out.Skipped {
		fmt.Fprintf(&b, "No modified files found vs branch %s.\n", out.Branch)
		return b.String()
	}

	fmt.Fprintf(&b, "Files (%d):\n", len(out.Files))
	for _, f := range out.Files {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Steps:")
	for _, s := range out.Steps {
		if s.ExitCode == 0 {
			fmt.Fprintf(&b, "  %s: ok\n", s.Name)
		} else {
			fmt.Fprintf(&b, "  %s: exit %d\n", s.Name, s.ExitCode)
		}
	}
	fmt.Fprintln(&b)

	if failed := out.Failed(); len(failed) > 0 {
		fmt.Fprintf(&b, "Inspect with pyfmt_inspect(run_id=%q, step=%q).\n", out.ID, failed[len(failed)-1].Name)
	} else if out.DryRun {
		fmt.Fprintf(&b, "No changes needed. Inspect output with pyfmt_inspect(run_id=%q, step=\"<tool>\").\n", out.ID)
	} else {
		fmt.Fprintln(&b, "All steps passed.")
	}
	return b.String()
}
