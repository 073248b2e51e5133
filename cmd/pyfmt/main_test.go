package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/pyfmt"
	"github.com/deixis/pyfmt/internal/config"
	"github.com/deixis/pyfmt/internal/pipeline"
)

// fakePython stands in for "python -m <tool>". black fails in check mode.
const fakePython = `#!/bin/sh
tool=$2
shift 2
for a in "$@"; do
	if [ "$tool" = black ] && [ "$a" = --check ]; then
		echo "would reformat $tool" >&2
		exit 1
	fi
done
echo "$tool ok"
`

// newWorkspace creates a repository with a fake interpreter and
// src/app.py, and makes it the working directory.
func newWorkspace(t *testing.T, extraConfig string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	py := filepath.Join(dir, "python")
	require.NoError(t, os.WriteFile(py, []byte(fakePython), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.py"), []byte("x=1\n"), 0o644))
	cfg := "python: " + py + "\nroot: src\n" + extraConfig
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o644))
	t.Chdir(dir)
	t.Setenv("NO_COLOR", "1")
	return dir
}

func execute(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := execute("version")
	assert.Equal(t, 0, code)
	assert.Equal(t, pyfmt.Version+"\n", out)
}

func TestFormatDefaultRoot(t *testing.T) {
	newWorkspace(t, "")

	code, out, _ := execute()
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "autoflake  ok")
	assert.Contains(t, out, "ruff       ok")
	assert.Contains(t, out, "ok\n")
}

func TestFormatDryRunFails(t *testing.T) {
	newWorkspace(t, "")

	code, out, errOut := execute("--dry", "src/app.py")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "black      exit 1")
	assert.Contains(t, out, "FAIL (exit 1)")
	assert.Contains(t, errOut, "would reformat black")
}

func TestFormatJSON(t *testing.T) {
	dir := newWorkspace(t, "")

	code, out, _ := execute("--json", "src/app.py")
	require.Equal(t, 0, code)

	var got pipeline.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{filepath.Join(dir, "src", "app.py")}, got.Files)
	require.Len(t, got.Steps, 4)
	assert.Equal(t, "autoflake", got.Steps[0].Name)
	assert.NotEmpty(t, got.ID)
}

func TestFormatRelativeToSubdir(t *testing.T) {
	dir := newWorkspace(t, "")
	t.Chdir(filepath.Join(dir, "src"))

	code, out, _ := execute("--json", "app.py")
	require.Equal(t, 0, code)

	var got pipeline.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{filepath.Join(dir, "src", "app.py")}, got.Files)
}

func TestInvalidConfigExitsTwo(t *testing.T) {
	newWorkspace(t, "max_output: -1\n")

	code, _, errOut := execute()
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "pyfmt: loading config")
}

func TestMissingInterpreterExitsTwo(t *testing.T) {
	dir := newWorkspace(t, "")
	cfg := "python: " + filepath.Join(dir, "nope") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o644))

	code, out, errOut := execute()
	assert.Equal(t, 2, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "running autoflake")
}

func TestUnknownFlagExitsTwo(t *testing.T) {
	code, _, errOut := execute("--bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown flag")
}

func TestMCPInstructions(t *testing.T) {
	var stdout, stderr bytes.Buffer
	var code int
	cmd := newRootCmd(&stdout, &stderr, &code)
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"mcp", "--instructions"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "pyfmt_run")
}

func TestFormatSummarySkipped(t *testing.T) {
	assert.Equal(t, "nothing to format\n", formatSummary(&pipeline.Outcome{Skipped: true}))
}

func TestHistory(t *testing.T) {
	newWorkspace(t, "history: .pyfmt/history.db\n")

	code, _, _ := execute("--dry", "src/app.py")
	require.Equal(t, 1, code)
	code, _, _ = execute("src/app.py")
	require.Equal(t, 0, code)

	code, out, _ := execute("history")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "format")
	assert.Contains(t, lines[1], "ok")
	assert.Contains(t, lines[2], "dry")
	assert.Contains(t, lines[2], "exit 1")
}

func TestHistoryDisabled(t *testing.T) {
	newWorkspace(t, "")

	code, _, errOut := execute("history")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "run history is disabled")
}
