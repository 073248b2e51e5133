// Package mcp provides the pyfmt MCP server, registering the run and
// inspect tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/pyfmt"
	"github.com/deixis/pyfmt/internal/config"
	"github.com/deixis/pyfmt/internal/gitdiff"
	"github.com/deixis/pyfmt/internal/pipeline"
	"github.com/deixis/pyfmt/internal/report"
	"github.com/deixis/pyfmt/internal/runner"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu     sync.Mutex
	loaded *config.LoadResult
	engine *pipeline.Engine
	store  report.Store
	logger *slog.Logger
}

// NewServer creates an MCP server with the pyfmt tools registered.
func NewServer(loaded *config.LoadResult, store report.Store, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handler{store: store, logger: logger}
	h.setWorkspace(loaded)

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "pyfmt", Version: pyfmt.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "pyfmt_run",
		Description: `Run the formatting pipeline (autoflake, isort, black, ruff) over Python files.

Defaults to formatting the configured root directory in place. Use fast=<branch> to limit the run
to files changed against a branch, and dry=true to report changes without writing them.
Results are stored for drill-down via pyfmt_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "pyfmt_inspect",
		Description: `Show the full command, stdout and stderr of one step from a pyfmt_run result.

Use the run_id from the pyfmt_run output and a step name (autoflake, isort, black or ruff).`,
	}, h.inspectHandler)

	return s
}

// setWorkspace rebuilds the engine for the repository described by loaded.
func (h *handler) setWorkspace(loaded *config.LoadResult) {
	cfg := loaded.Config
	r := &runner.Runner{Workspace: loaded.RepoRoot, MaxOutput: cfg.MaxOutputBytes()}
	sel := gitdiff.NewSelector(r, loaded.RepoRoot, cfg.ManagedExtensions(), h.logger)
	engine := pipeline.NewEngine(cfg, r, sel, h.logger)
	engine.Store = h.store

	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = loaded
	h.engine = engine
}

func (h *handler) current() (*config.LoadResult, *pipeline.Engine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded, h.engine
}

// updateWorkspaceFromRoots queries the client for MCP roots and switches to
// the first file root, if any. Called during session initialization, before
// any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(filepath.FromSlash(u.Path))
	if err != nil {
		h.logger.Warn("ignoring client root", "root", u.Path, "error", err)
		return
	}
	h.setWorkspace(loaded)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
