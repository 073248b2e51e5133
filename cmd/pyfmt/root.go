package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deixis/pyfmt"
	"github.com/deixis/pyfmt/internal/config"
	"github.com/deixis/pyfmt/internal/gitdiff"
	"github.com/deixis/pyfmt/internal/logging"
	"github.com/deixis/pyfmt/internal/pipeline"
	"github.com/deixis/pyfmt/internal/report"
	"github.com/deixis/pyfmt/internal/runner"
)

type rootFlags struct {
	fast    string
	dry     bool
	py      string
	debug   bool
	json    bool
	noColor bool
}

// newRootCmd builds the command tree. The pipeline exit code is written to
// code; errors are returned from Execute.
func newRootCmd(stdout, stderr io.Writer, code *int) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "pyfmt [files...]",
		Short: "Format Python sources with autoflake, isort, black and ruff",
		Long: `pyfmt runs autoflake, isort, black and ruff, in that order, over the given
files, the configured root directory, or (with --fast) only the files changed
against a branch. The exit status is that of the last tool that failed.`,
		Version:       pyfmt.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := format(cmd.Context(), f, args, stdout, stderr)
			*code = c
			return err
		},
	}

	cmd.Flags().StringVar(&f.fast, "fast", "", "format only files changed against this branch (plus staged and unstaged changes)")
	cmd.Flags().BoolVar(&f.dry, "dry", false, "dry run: report changes without modifying files")
	cmd.Flags().StringVar(&f.py, "py", "", "target Python version for isort and black (e.g. 311)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the run outcome as JSON")
	cmd.PersistentFlags().BoolVarP(&f.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&f.noColor, "no-color", false, "disable colour in log output")

	cmd.AddCommand(newMCPCmd(&f, stderr))
	cmd.AddCommand(newHistoryCmd(&f, stdout, stderr))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(stdout, pyfmt.Version)
		},
	})
	return cmd
}

// env is the per-process wiring shared by subcommands.
type env struct {
	loaded  *config.LoadResult
	logger  *slog.Logger
	history *report.SQLiteStore // nil unless history is configured
	closers []io.Closer
}

func (e *env) Close() {
	for _, c := range e.closers {
		_ = c.Close()
	}
}

func setup(f *rootFlags, stderr io.Writer) (*env, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := new(slog.LevelVar)
	if f.debug {
		level.Set(slog.LevelDebug)
	}
	logger, closer, err := logging.New(stderr, level, logging.Options{
		File:  loaded.Config.Log.File,
		Color: logging.ColorEnabled(f.noColor),
	})
	if err != nil {
		logger.Warn("logging to file disabled", "error", err)
	}
	e := &env{loaded: loaded, logger: logger}
	if closer != nil {
		e.closers = append(e.closers, closer)
	}

	if path := loaded.HistoryPath(); path != "" {
		history, err := report.OpenSQLiteStore(path)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		e.history = history
		e.closers = append(e.closers, history)
	}
	return e, nil
}

func format(ctx context.Context, f rootFlags, args []string, stdout, stderr io.Writer) (int, error) {
	e, err := setup(&f, stderr)
	if err != nil {
		return 0, err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg := e.loaded.Config
	r := &runner.Runner{Workspace: e.loaded.RepoRoot, MaxOutput: cfg.MaxOutputBytes()}
	sel := gitdiff.NewSelector(r, e.loaded.RepoRoot, cfg.ManagedExtensions(), e.logger)
	engine := pipeline.NewEngine(cfg, r, sel, e.logger)
	if e.history != nil {
		engine.Store = e.history
	}

	files, err := absFiles(args)
	if err != nil {
		return 0, err
	}
	py := f.py
	if py == "" {
		py = cfg.PyVersion
	}

	out, err := engine.Execute(ctx, pipeline.Request{
		Files:       files,
		DefaultRoot: e.loaded.RootDir(),
		FastBranch:  f.fast,
		DryRun:      f.dry,
		PyVersion:   py,
	})
	if err != nil {
		return 0, err
	}

	if f.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return 0, err
		}
	} else {
		fmt.Fprint(stdout, formatSummary(out))
	}
	return out.ExitCode, nil
}

// absFiles resolves file arguments against the current directory, since
// tools run from the repository root.
func absFiles(args []string) ([]string, error) {
	files := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", a, err)
		}
		files = append(files, abs)
	}
	return files, nil
}

func formatSummary(out *pipeline.Outcome) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if out.Skipped {
		w("nothing to format\n")
		return string(b)
	}
	for _, s := range out.Steps {
		if s.ExitCode == 0 {
			w("  %-10s ok\n", s.Name)
		} else {
			w("  %-10s exit %d\n", s.Name, s.ExitCode)
		}
	}
	if out.ExitCode == 0 {
		w("ok\n")
	} else {
		w("FAIL (exit %d)\n", out.ExitCode)
	}
	return string(b)
}
