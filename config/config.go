// Package config loads harness settings from .depcheck.yaml files.
//
// Files are layered: $HOME/.depcheck.yaml, then the one at the root of the enclosing git
// repository, then the one in the working directory. Later files override earlier ones and
// command-line flags override them all.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/ghodss/yaml"
	"github.com/go-git/go-git/v5"
)

// FileName is the name of the config file looked up in each layer.
const FileName = ".depcheck.yaml"

type Config struct {
	// Tool is the dependency-tracking tool under test
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty"`
	// Root is the directory searched for fixtures
	Root string `yaml:"root,omitempty" json:"root,omitempty"`
	// Pattern is the fixture file name pattern
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	// ToolArgs is the argument prefix before each fixture command
	ToolArgs []string `yaml:"toolArgs,omitempty" json:"toolArgs,omitempty"`
	// ResultsDir holds the per-fixture results artifacts
	ResultsDir string `yaml:"resultsDir,omitempty" json:"resultsDir,omitempty"`
	// Timeout per subprocess, e.g. "30s"
	Timeout string   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Filter  []string `yaml:"filter,omitempty" json:"filter,omitempty"`
	// Report is a file to write the suite result to
	Report string `yaml:"report,omitempty" json:"report,omitempty"`
}

func Default() Config {
	return Config{
		Root:    ".",
		Pattern: "test.*.json",
	}
}

// Load merges the config layers visible from cwd over the defaults.
func Load(cwd string) (Config, error) {
	cfg := Default()

	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return cfg, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	if root := FindRepoRoot(absCwd); root != "" {
		paths = append(paths, filepath.Join(root, FileName))
	}
	paths = append(paths, filepath.Join(absCwd, FileName))

	seen := map[string]bool{}
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		if cfg, err = mergeFromFile(cfg, path); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// FindRepoRoot returns the worktree root of the git repository containing path, or "".
func FindRepoRoot(path string) string {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ""
	}
	return wt.Filesystem.Root()
}

func mergeFromFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	} else if err != nil {
		return base, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return base, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	logger.V(2).Infof("loaded config from %s", path)

	return Merge(base, override.resolve(filepath.Dir(path))), nil
}

// resolve makes the file paths in c relative to dir, the directory of the file c came from.
func (c Config) resolve(dir string) Config {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Root = abs(c.Root)
	c.ResultsDir = abs(c.ResultsDir)
	c.Report = abs(c.Report)
	if strings.ContainsRune(c.Tool, '/') {
		c.Tool = abs(c.Tool)
	}
	return c
}

// Merge overlays the non-empty fields of override onto base.
func Merge(base, override Config) Config {
	if override.Tool != "" {
		base.Tool = override.Tool
	}
	if override.Root != "" {
		base.Root = override.Root
	}
	if override.Pattern != "" {
		base.Pattern = override.Pattern
	}
	if len(override.ToolArgs) > 0 {
		base.ToolArgs = override.ToolArgs
	}
	if override.ResultsDir != "" {
		base.ResultsDir = override.ResultsDir
	}
	if override.Timeout != "" {
		base.Timeout = override.Timeout
	}
	if len(override.Filter) > 0 {
		base.Filter = override.Filter
	}
	if override.Report != "" {
		base.Report = override.Report
	}
	return base
}

// TimeoutDuration parses Timeout; an empty timeout is zero (no limit).
func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}
