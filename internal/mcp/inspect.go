package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/pyfmt/internal/report"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a pyfmt_run result"`
	Step  string `json:"step" jsonschema:"tool name: autoflake, isort, black or ruff"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Step == "" {
		return errorResult("step is required")
	}

	run, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	step, ok := run.Step(params.Step)
	if !ok {
		names := make([]string, len(run.Steps))
		for i, s := range run.Steps {
			names[i] = s.Name
		}
		if len(names) == 0 {
			return errorResult(fmt.Sprintf("Run %s ran no steps.", params.RunID))
		}
		return errorResult(fmt.Sprintf("Run %s has no step %q (steps: %s).", params.RunID, params.Step, strings.Join(names, ", ")))
	}

	return textResult(formatStep(run.ID, step))
}

func formatStep(runID string, s report.Step) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Step: %s (exit %d, %s)\n", s.Name, s.ExitCode, s.Duration)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(s.Argv, " "))

	section := func(title, text string) {
		fmt.Fprintln(&b)
		if strings.TrimSpace(text) == "" {
			fmt.Fprintf(&b, "%s: (empty)\n", title)
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	section("Stdout", s.Stdout)
	section("Stderr", s.Stderr)

	return b.String()
}
