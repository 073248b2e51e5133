package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{Workspace: t.TempDir()}
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"echo", "hello"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "hello") {
		t.Errorf("Stdout = %q, want to contain 'hello'", res.Stdout)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(res.Argv) != 2 || res.Argv[0] != "echo" {
		t.Errorf("Argv = %v, want [echo hello]", res.Argv)
	}
}

func TestRun_NonZeroExitIsData(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo oops >&2; exit 3"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "oops") {
		t.Errorf("Stderr = %q, want to contain 'oops'", res.Stderr)
	}
	if res.OK() {
		t.Error("OK() = true, want false")
	}
}

func TestRun_KilledBySignal(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"sh", "-c", "kill -TERM $$"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 128+15 {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, 128+15)
	}
}

func TestRun_BinaryNotFound(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), []string{"nonexistent-binary-xyz-123"}, "")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("error = %T, want *SpawnError", err)
	}
	if !strings.Contains(err.Error(), "nonexistent-binary-xyz-123") {
		t.Errorf("error = %q, want to mention the binary name", err)
	}
}

func TestRun_EmptyArgv(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), nil, "")
	if !errors.Is(err, ErrEmptyArgv) {
		t.Fatalf("error = %v, want ErrEmptyArgv", err)
	}
}

func TestRun_ForcedEnvironment(t *testing.T) {
	t.Setenv("LANG", "fr_FR.ISO-8859-1")
	t.Setenv("LC_ALL", "POSIX")
	t.Setenv("PYTHONIOENCODING", "latin-1")

	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"sh", "-c", `echo "$PYTHONIOENCODING|$LC_ALL|$LANG"`}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(res.Stdout); got != "utf-8|C.UTF-8|C.UTF-8" {
		t.Errorf("child environment = %q, want utf-8|C.UTF-8|C.UTF-8", got)
	}
}

func TestRun_InvalidUTF8IsReplaced(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"sh", "-c", `printf 'a\377b'`}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "a�b" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "a�b")
	}
}

func TestRun_NonASCIIPreserved(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"echo", "héllo wörld ✓"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "héllo wörld ✓" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestRun_CWDWithinWorkspace(t *testing.T) {
	r := newTestRunner(t)
	sub := filepath.Join(r.Workspace, "subdir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(context.Background(), []string{"pwd"}, "subdir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, "subdir") {
		t.Errorf("Stdout = %q, want to contain 'subdir'", res.Stdout)
	}
}

func TestRun_CWDOutsideWorkspace_Relative(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), []string{"echo"}, "../")
	if !errors.Is(err, ErrOutsideWorkspace) {
		t.Fatalf("error = %v, want ErrOutsideWorkspace", err)
	}
}

func TestRun_CWDOutsideWorkspace_Absolute(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), []string{"echo"}, "/")
	if !errors.Is(err, ErrOutsideWorkspace) {
		t.Fatalf("error = %v, want ErrOutsideWorkspace", err)
	}
}

func TestRun_CWDSiblingWithDotDotPrefix(t *testing.T) {
	r := newTestRunner(t)
	sub := filepath.Join(r.Workspace, "..cache")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(context.Background(), []string{"pwd"}, "..cache"); err != nil {
		t.Fatalf("unexpected error for in-workspace dir starting with '..': %v", err)
	}
}

func TestRun_NoCapByDefault(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"sh", "-c", "head -c 5000 /dev/zero | tr '\\0' 'x'"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stdout) != 5000 {
		t.Errorf("len(Stdout) = %d, want 5000", len(res.Stdout))
	}
	if res.Truncated {
		t.Error("Truncated = true, want false")
	}
}

func TestRun_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 100

	res, err := r.Run(context.Background(), []string{"sh", "-c", "head -c 200 /dev/zero | tr '\\0' 'x'"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) > r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want <= %d", len(res.Stdout), r.MaxOutput)
	}
}

func TestEnv_OverridesHostValues(t *testing.T) {
	got := Env([]string{"PATH=/bin", "LANG=de_DE", "LC_ALL=C", "HOME=/root"})
	want := map[string]string{
		"PATH":             "/bin",
		"HOME":             "/root",
		"LANG":             "C.UTF-8",
		"LC_ALL":           "C.UTF-8",
		"PYTHONIOENCODING": "utf-8",
	}
	seen := make(map[string]int)
	for _, kv := range got {
		k, v, _ := strings.Cut(kv, "=")
		seen[k]++
		if w, ok := want[k]; ok && w != v {
			t.Errorf("%s = %q, want %q", k, v, w)
		}
	}
	for k := range want {
		if seen[k] != 1 {
			t.Errorf("%s appears %d times, want 1", k, seen[k])
		}
	}
}
