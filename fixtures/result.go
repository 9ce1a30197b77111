package fixtures

import (
	"fmt"
	"time"

	"github.com/flanksource/clicky/task"
	"github.com/samber/lo"
)

// Warning is a harness-level anomaly that does not change a verdict.
type Warning struct {
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
}

// FixtureResult is the verdict for one fixture run.
type FixtureResult struct {
	Name        string        `json:"name" yaml:"name"`
	Path        string        `json:"path" yaml:"path"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Status      task.Status   `json:"status" yaml:"status"`
	Duration    time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Kind and Error describe what stopped the fixture from passing
	Kind        ErrorKind    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Warnings    []Warning    `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	Command    Argv         `json:"command,omitempty" yaml:"command,omitempty"`
	Setup      []ExecResult `json:"setup,omitempty" yaml:"setup,omitempty"`
	Invocation *ExecResult  `json:"invocation,omitempty" yaml:"invocation,omitempty"`
	Teardown   []ExecResult `json:"teardown,omitempty" yaml:"teardown,omitempty"`
	Report     *Report      `json:"report,omitempty" yaml:"report,omitempty"`

	Start *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
}

func newFixtureResult(name, path string) FixtureResult {
	return FixtureResult{
		Name:   name,
		Path:   path,
		Status: task.StatusPASS,
		Start:  lo.ToPtr(time.Now()),
	}
}

// Fail records the error that stopped the fixture. Fixture files that could not be loaded
// are errors, every other failure is a test failure.
func (f FixtureResult) Fail(err error) FixtureResult {
	f.Kind = KindOf(err)
	f.Error = err.Error()
	if IsKind(err, ParseError) || IsKind(err, SchemaError) {
		f.Status = task.StatusERR
	} else {
		f.Status = task.StatusFAIL
	}
	return f
}

// Warn attaches warnings without affecting the verdict.
func (f FixtureResult) Warn(warnings ...error) FixtureResult {
	for _, w := range warnings {
		f.Warnings = append(f.Warnings, Warning{Kind: KindOf(w), Message: w.Error()})
	}
	return f
}

// Skip marks a fixture that was never run, e.g. because the suite was interrupted.
func (f FixtureResult) Skip(reason string) FixtureResult {
	f.Status = task.StatusSKIP
	f.Error = reason
	return f
}

func (f FixtureResult) Done() FixtureResult {
	if f.Start != nil {
		f.Duration = time.Since(*f.Start)
	}
	return f
}

func (f FixtureResult) Passed() bool {
	return f.Status == task.StatusPASS || f.Status == task.StatusSuccess
}

func (f FixtureResult) String() string {
	return fmt.Sprintf("%s - %s", f.Name, f.Status.String())
}

// Stats tallies fixture verdicts for a suite.
type Stats struct {
	Total   int `json:"total" yaml:"total"`
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed,omitempty" yaml:"failed,omitempty"`
	Skipped int `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error   int `json:"error,omitempty" yaml:"error,omitempty"`
}

func (s Stats) Add(result *FixtureResult) Stats {
	if result == nil {
		return s
	}
	s.Total++
	switch {
	case result.Passed():
		s.Passed++
	case result.Status == task.StatusSKIP:
		s.Skipped++
	case result.Status == task.StatusERR, result.Status == task.StatusCancelled:
		s.Error++
	default:
		s.Failed++
	}
	return s
}

// IsOK reports whether every fixture passed. A suite with no fixtures is OK.
func (s Stats) IsOK() bool {
	return s.Passed == s.Total
}

// Percent is the share of passed fixtures, 100 for an empty suite.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Passed) * 100 / float64(s.Total)
}

func (s Stats) String() string {
	str := fmt.Sprintf("%d/%d (%.0f%%)", s.Passed, s.Total, s.Percent())
	if s.Skipped > 0 {
		str += fmt.Sprintf(" %d skipped", s.Skipped)
	}
	if s.Error > 0 {
		str += fmt.Sprintf(" %d error", s.Error)
	}
	return str
}
