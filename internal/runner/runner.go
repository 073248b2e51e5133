// Package runner executes external tools within a workspace boundary,
// forcing a UTF-8 environment and capturing their output as text.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrEmptyArgv is returned when Run is called without a command.
	ErrEmptyArgv = errors.New("empty argv")
	// ErrOutsideWorkspace is returned when cwd escapes the workspace root.
	ErrOutsideWorkspace = errors.New("outside workspace")
)

// ForcedEnv lists the variables set on every child process. They override
// whatever the host environment specifies.
var ForcedEnv = []string{
	"PYTHONIOENCODING=utf-8",
	"LC_ALL=C.UTF-8",
	"LANG=C.UTF-8",
}

// SpawnError reports a command that could not be started at all.
type SpawnError struct {
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Argv[0], e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Runner executes commands within a workspace boundary.
// A zero MaxOutput means output is captured in full.
type Runner struct {
	Workspace string
	MaxOutput int // bytes
}

// Run executes a command with the given argv. The first element is the
// binary name (resolved via PATH), and the rest are arguments.
// cwd is resolved relative to the workspace root and must remain within it.
//
// Run blocks until the process exits. A nonzero exit status is reported in
// the Result, never as an error; only spawn failures are errors.
func (r *Runner) Run(ctx context.Context, argv []string, cwd string) (*Result, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyArgv
	}

	dir, err := r.resolveDir(cwd)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = Env(os.Environ())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: r.MaxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: r.MaxOutput}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Binary not found, permission denied or other exec error.
			return nil, &SpawnError{Argv: argv, Err: runErr}
		}
		exitCode = exitStatus(exitErr)
	}

	truncated := r.MaxOutput > 0 && (stdout.Len() >= r.MaxOutput || stderr.Len() >= r.MaxOutput)

	return &Result{
		RunID:     uuid.New().String(),
		Argv:      append([]string(nil), argv...),
		ExitCode:  exitCode,
		Stdout:    decode(stdout.Bytes()),
		Stderr:    decode(stderr.Bytes()),
		Duration:  elapsed,
		Truncated: truncated,
	}, nil
}

// exitStatus returns the process exit code, or 128+signal for a child
// killed by a signal, as shells report it.
func exitStatus(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return err.ExitCode()
}

// Env returns base with every ForcedEnv variable replaced.
func Env(base []string) []string {
	forced := make(map[string]bool, len(ForcedEnv))
	for _, kv := range ForcedEnv {
		forced[kv[:strings.IndexByte(kv, '=')]] = true
	}

	env := make([]string, 0, len(base)+len(ForcedEnv))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if forced[key] {
			continue
		}
		env = append(env, kv)
	}
	return append(env, ForcedEnv...)
}

// decode converts captured bytes to text. Invalid UTF-8 sequences are
// replaced with U+FFFD.
func decode(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Workspace, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Workspace, cwd))
	}

	rel, err := filepath.Rel(r.Workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("cwd %q is %w %q", cwd, ErrOutsideWorkspace, r.Workspace)
	}
	return dir, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
// A limit of zero or less disables the cap.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
