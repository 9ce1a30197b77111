package fixtures

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/flanksource/commons/logger"
)

// Cleanup deletes every reported output from the fixture directory so the next run starts
// clean. Files are removed; directories are removed only when empty. Outputs that resolve
// outside dir are left alone.
//
// Cleanup never fails: each removal is attempted independently and every problem other
// than an output that is already gone comes back as a CleanupWarning. Running it twice has
// no further effect.
func Cleanup(dir string, outputs PathSet) []error {
	var warnings []error

	// children sort after their parents, so walk backwards to empty a directory before removing it
	for _, output := range slices.Backward(outputs) {
		path := filepath.Join(dir, output)
		if !within(dir, path) {
			warnings = append(warnings, newError(CleanupWarning, path, "outside of fixture directory %s, not removed", dir))
			continue
		}

		err := os.Remove(path)
		switch {
		case err == nil:
			logger.V(3).Infof("removed %s", path)
		case errors.Is(err, fs.ErrNotExist):
			logger.V(3).Infof("%s already removed", path)
		default:
			warnings = append(warnings, &Error{Kind: CleanupWarning, Path: path, Err: err})
		}
	}

	for _, warning := range warnings {
		logger.Debugf("%v", warning)
	}
	return warnings
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
