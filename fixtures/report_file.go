package fixtures

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// SuiteResult is everything a suite run produced.
type SuiteResult struct {
	Root    string          `json:"root" yaml:"root"`
	Tool    string          `json:"tool" yaml:"tool"`
	Stats   Stats           `json:"stats" yaml:"stats"`
	Results []FixtureResult `json:"results" yaml:"results"`
}

// WriteReport writes the suite result to path as YAML when the extension is .yaml or .yml,
// and as JSON otherwise.
func WriteReport(path string, suite SuiteResult) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(suite)
	default:
		data, err = json.MarshalIndent(suite, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
