package fixtures

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/flanksource/commons/logger"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ResultsArtifacts hands out a distinct results artifact path to every fixture run, all
// inside one directory owned by the suite. No two fixtures ever share a results file.
type ResultsArtifacts struct {
	Dir  string
	next int
}

// NewResultsArtifacts creates a fresh directory for results artifacts under parent, or
// under the system temp directory when parent is empty.
func NewResultsArtifacts(parent string) (*ResultsArtifacts, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "depcheck-results-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &ResultsArtifacts{Dir: dir}, nil
}

// Allocate returns an absolute path that does not exist yet and is not used by any other
// fixture run.
func (a *ResultsArtifacts) Allocate(fixture *Fixture) (string, error) {
	a.next++
	name := strings.Trim(unsafeNameChars.ReplaceAllString(filepath.ToSlash(fixture.Name), "_"), "_")
	if len(name) > 64 {
		name = name[len(name)-64:]
	}
	path := filepath.Join(a.Dir, fmt.Sprintf("%04d-%s.json", a.next, name))
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to clear results artifact: %w", err)
	}
	return path, nil
}

// Release deletes one results artifact once it has been read.
func (a *ResultsArtifacts) Release(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("failed to remove results artifact %s: %v", path, err)
	}
}

// Close removes the results directory and everything left in it.
func (a *ResultsArtifacts) Close() error {
	if a == nil || a.Dir == "" {
		return nil
	}
	logger.V(3).Infof("removing results directory %s", a.Dir)
	return os.RemoveAll(a.Dir)
}
