// Package config loads and validates the optional .pyfmt.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up at the repository root.
const FileName = ".pyfmt.yaml"

// Default values.
const (
	DefaultPython = "python3"
	DefaultRoot   = "."
)

// DefaultExtensions are the managed source extensions when none are configured.
var DefaultExtensions = []string{".py"}

// Config holds the parsed .pyfmt.yaml configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Python       string      `yaml:"python"`     // interpreter used as "<python> -m <tool>"
	RawRoot      string      `yaml:"root"`       // default managed directory, relative to repo root
	Extensions   []string    `yaml:"extensions"` // e.g. [".py", ".pyi"]
	PyVersion    string      `yaml:"py_version"` // default target version hint, e.g. "311"
	RawMaxOutput int         `yaml:"max_output"` // bytes; 0 means unlimited
	History      string      `yaml:"history"`    // SQLite run history database; empty keeps no history
	Log          LogConfig   `yaml:"log"`
	Tools        ToolsConfig `yaml:"tools"`
}

// LogConfig controls the structured log file.
type LogConfig struct {
	File string `yaml:"file"` // JSON log file path; empty disables file logging
}

// ToolsConfig holds per-tool settings.
type ToolsConfig struct {
	Autoflake ToolConfig `yaml:"autoflake"`
	Isort     ToolConfig `yaml:"isort"`
	Black     ToolConfig `yaml:"black"`
	Ruff      ToolConfig `yaml:"ruff"`
}

// ToolConfig controls how a single tool is executed.
type ToolConfig struct {
	Args []string `yaml:"args"` // extra flags inserted before the file list
}

// Interpreter returns the configured Python interpreter or the default.
func (c *Config) Interpreter() string {
	if c.Python != "" {
		return c.Python
	}
	return DefaultPython
}

// Root returns the configured default directory or ".".
func (c *Config) Root() string {
	if c.RawRoot != "" {
		return c.RawRoot
	}
	return DefaultRoot
}

// ManagedExtensions returns the configured extensions, falling back to defaults.
func (c *Config) ManagedExtensions() []string {
	if len(c.Extensions) > 0 {
		return c.Extensions
	}
	return DefaultExtensions
}

// MaxOutputBytes returns the configured output cap. Zero means unlimited.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return 0
}

// ToolArgs returns the extra arguments configured for the named tool.
func (c *Config) ToolArgs(name string) []string {
	switch name {
	case "autoflake":
		return c.Tools.Autoflake.Args
	case "isort":
		return c.Tools.Isort.Args
	case "black":
		return c.Tools.Black.Args
	case "ruff":
		return c.Tools.Ruff.Args
	}
	return nil
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	for _, ext := range c.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	if c.RawMaxOutput < 0 {
		errs = append(errs, fmt.Errorf("max_output must not be negative, got %d", c.RawMaxOutput))
	}
	if filepath.IsAbs(c.RawRoot) {
		errs = append(errs, fmt.Errorf("root %q must be relative to the repository root", c.RawRoot))
	}
	return errors.Join(errs...)
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory containing .git; falls back to workspace
}

// RootDir returns the absolute default managed directory.
func (l *LoadResult) RootDir() string {
	return filepath.Join(l.RepoRoot, l.Config.Root())
}

// HistoryPath returns the absolute path of the run history database, or ""
// when history is disabled. Relative paths are resolved against the
// repository root.
func (l *LoadResult) HistoryPath() string {
	h := l.Config.History
	if h == "" || filepath.IsAbs(h) {
		return h
	}
	return filepath.Join(l.RepoRoot, h)
}

// Load reads the .pyfmt.yaml file from the repository root.
// The repository root is discovered by walking upward from workspace
// looking for .git. If no config file exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := FindRepoRoot(workspace)
	if err != nil {
		// Not inside a git checkout; use workspace as root.
		root, err = filepath.Abs(workspace)
		if err != nil {
			return nil, fmt.Errorf("resolving workspace: %w", err)
		}
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, RepoRoot: root}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, RepoRoot: root}, nil
}

// FindRepoRoot walks upward from dir looking for a directory containing .git.
// A .git file (worktrees, submodules) counts as well as a directory.
func FindRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf(".git not found")
		}
		dir = parent
	}
}
