package fixtures

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/flanksource/commons/collections"
	"github.com/flanksource/commons/logger"
)

// DefaultPattern is the file name convention for fixture files.
const DefaultPattern = "test.*.json"

// Discover returns the fixture files under root whose name matches pattern.
//
// Patterns without a slash match the base name of every file anywhere under root; patterns
// with a slash match the path relative to root. The sequence walks the tree each time it is
// ranged over and yields files in walk order, which callers must not rely on.
//
// A symlinked root is followed; yielded paths stay under root as given. Only an
// inaccessible root is an error. A root without fixtures yields nothing.
func Discover(root, pattern string) (iter.Seq[string], error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, newError(DiscoveryError, root, "invalid fixture pattern %q", pattern)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &Error{Kind: DiscoveryError, Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, newError(DiscoveryError, root, "not a directory")
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, &Error{Kind: DiscoveryError, Path: root, Err: err}
	}

	// WalkDir does not follow a symlinked root, so walk its target and report paths under root
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &Error{Kind: DiscoveryError, Path: root, Err: err}
	}

	matchPath := strings.Contains(pattern, "/")

	return func(yield func(string) bool) {
		_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warnf("skipping %s: %v", path, err)
				if d != nil && d.IsDir() && path != walkRoot {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(walkRoot, path)
			if err != nil {
				return nil
			}
			name := d.Name()
			if matchPath {
				name = filepath.ToSlash(rel)
			}
			if ok, _ := doublestar.Match(pattern, name); !ok {
				return nil
			}
			if !yield(filepath.Join(root, rel)) {
				return filepath.SkipAll
			}
			return nil
		})
	}, nil
}

// MatchesFilter reports whether a fixture name is selected by filters. Filters are glob-like
// patterns; a leading "!" excludes. No filters selects everything.
func MatchesFilter(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	match, _ := collections.MatchItem(name, filters...)
	return match
}
