// Package gitdiff selects managed source files that differ from a reference
// branch, the index, or the working tree.
package gitdiff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/deixis/pyfmt/internal/runner"
)

// ErrDiff is returned when a git diff invocation fails. It is distinct from
// a successful diff that reports no changes.
var ErrDiff = errors.New("git diff failed")

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) (*runner.Result, error)
}

// Selector computes the set of changed managed files in a repository.
type Selector struct {
	Runner     CommandRunner
	RepoRoot   string   // absolute repository root; git paths are relative to it
	Extensions []string // managed extensions, e.g. ".py"
	Logger     *slog.Logger
}

// NewSelector returns a Selector over the repository at repoRoot.
func NewSelector(r CommandRunner, repoRoot string, extensions []string, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selector{
		Runner:     r,
		RepoRoot:   repoRoot,
		Extensions: extensions,
		Logger:     logger,
	}
}

// Select returns the absolute paths of managed files under subtree that
// differ from branch, are staged, or have unstaged changes. Files that no
// longer exist on disk are dropped. The result is sorted.
func (s *Selector) Select(ctx context.Context, branch, subtree string) ([]string, error) {
	if branch == "" {
		return nil, fmt.Errorf("%w: empty reference branch", ErrDiff)
	}
	// git would parse a leading dash as an option, not a revision.
	if strings.HasPrefix(branch, "-") {
		return nil, fmt.Errorf("%w: invalid reference branch %q", ErrDiff, branch)
	}

	var all []string
	for _, opts := range [][]string{
		{branch, "--"},
		{"--cached", "--"},
		{"--"},
	} {
		names, err := s.diffNames(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, names...)
	}

	candidates := make(map[string]struct{}, len(all))
	for _, name := range all {
		candidates[name] = struct{}{}
	}
	s.Logger.Debug("changed paths", "branch", branch, "count", len(candidates))

	root := s.absSubtree(subtree)
	files := make([]string, 0, len(candidates))
	for name := range candidates {
		path := filepath.Join(s.RepoRoot, filepath.FromSlash(name))
		if !s.managed(path) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if !Contains(root, path) {
			continue
		}
		files = append(files, path)
	}
	slices.Sort(files)

	s.Logger.Info("selected changed files", "branch", branch, "subtree", root, "files", len(files))
	return files, nil
}

// diffNames runs git diff --name-only with opts and returns the reported paths.
func (s *Selector) diffNames(ctx context.Context, opts []string) ([]string, error) {
	argv := append([]string{"git", "diff", "--name-only", "-z"}, opts...)
	res, err := s.Runner.Run(ctx, argv, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiff, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s exited %d: %s",
			ErrDiff, strings.Join(argv, " "), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return splitNames(res.Stdout), nil
}

func (s *Selector) managed(path string) bool {
	return slices.Contains(s.Extensions, filepath.Ext(path))
}

func (s *Selector) absSubtree(subtree string) string {
	if subtree == "" {
		return filepath.Clean(s.RepoRoot)
	}
	if filepath.IsAbs(subtree) {
		return filepath.Clean(subtree)
	}
	return filepath.Join(s.RepoRoot, subtree)
}

// splitNames splits NUL- or newline-separated git output into paths.
func splitNames(out string) []string {
	return strings.FieldsFunc(out, func(r rune) bool {
		return r == 0 || r == '\n' || r == '\r'
	})
}

// Contains reports whether path lies inside dir. The comparison works on
// path elements, so "repo/src" does not contain "repo/src2/foo.py".
func Contains(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
