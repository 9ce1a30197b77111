package fixtures

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
)

// MismatchKind names the way a report failed a fixture's expectations.
type MismatchKind string

const (
	// MissingFromResults: an expected path is not in the report
	MissingFromResults MismatchKind = "MissingFromResults"
	// ForbiddenPresent: a forbidden path is in the report
	ForbiddenPresent MismatchKind = "ForbiddenPresent"
	// ResultOutputMissingFromFilesystem: an expected output does not exist on disk
	ResultOutputMissingFromFilesystem MismatchKind = "ResultOutputMissingFromFilesystem"
	// ForbiddenOutputExistsOnFilesystem: a forbidden output exists on disk
	ForbiddenOutputExistsOnFilesystem MismatchKind = "ForbiddenOutputExistsOnFilesystem"
	// AssertionFailed: an assert expression evaluated to false or could not be evaluated
	AssertionFailed MismatchKind = "AssertionFailed"
)

// Category is one half of a dependency report.
type Category string

const (
	InputsCategory  Category = "inputs"
	OutputsCategory Category = "outputs"
)

// Diagnostic describes one failed expectation.
type Diagnostic struct {
	Kind     MismatchKind `json:"kind" yaml:"kind"`
	Category Category     `json:"category,omitempty" yaml:"category,omitempty"`
	// Paths are the offending paths, relative to the fixture directory
	Paths PathSet `json:"paths,omitempty" yaml:"paths,omitempty"`
	// Reported is the full reported set of the category, kept for MissingFromResults
	Reported   PathSet `json:"reported,omitempty" yaml:"reported,omitempty"`
	Expression string  `json:"expression,omitempty" yaml:"expression,omitempty"`
	Message    string  `json:"message,omitempty" yaml:"message,omitempty"`
}

func (d Diagnostic) Error() string {
	switch d.Kind {
	case MissingFromResults:
		return fmt.Sprintf("expected %s are not a subset of the results, missing %s", d.Category, d.Paths)
	case ForbiddenPresent:
		return fmt.Sprintf("found %s that should not exist: %s", d.Category, d.Paths)
	case ResultOutputMissingFromFilesystem:
		return fmt.Sprintf("result outputs missing from file system: %s", d.Paths)
	case ForbiddenOutputExistsOnFilesystem:
		return fmt.Sprintf("outputs exist on the file system, but should not: %s", d.Paths)
	case AssertionFailed:
		if d.Message != "" {
			return fmt.Sprintf("assertion %q failed: %s", d.Expression, d.Message)
		}
		return fmt.Sprintf("assertion %q evaluated to false", d.Expression)
	}
	return string(d.Kind)
}

// Evaluate checks report against the expectations. dir is the fixture directory that the
// on-disk checks resolve paths against. Every check runs; the verdict passes only if the
// returned slice is empty.
func (e Expectations) Evaluate(dir string, report Report) []Diagnostic {
	var diagnostics []Diagnostic
	diagnostics = append(diagnostics, e.CheckPositive(dir, report)...)
	diagnostics = append(diagnostics, e.CheckNegative(dir, report)...)
	diagnostics = append(diagnostics, e.CheckAssertions(report)...)
	return diagnostics
}

// CheckPositive requires expected ⊆ reported for inputs and outputs, and every expected
// output to exist on disk.
func (e Expectations) CheckPositive(dir string, report Report) []Diagnostic {
	var diagnostics []Diagnostic

	for _, c := range []struct {
		category Category
		expected PathSet
		reported PathSet
	}{
		{InputsCategory, e.Inputs, report.Inputs},
		{OutputsCategory, e.Outputs, report.Outputs},
	} {
		if !c.expected.SubsetOf(c.reported) {
			diagnostics = append(diagnostics, Diagnostic{
				Kind:     MissingFromResults,
				Category: c.category,
				Paths:    c.expected.Minus(c.reported),
				Reported: c.reported,
			})
		}
	}

	if absent := lo.Reject(e.Outputs, func(p string, _ int) bool { return exists(dir, p) }); len(absent) > 0 {
		diagnostics = append(diagnostics, Diagnostic{
			Kind:     ResultOutputMissingFromFilesystem,
			Category: OutputsCategory,
			Paths:    NewPathSet(absent...),
		})
	}
	return diagnostics
}

// CheckNegative requires forbidden ∩ reported = ∅ for inputs and outputs, and no forbidden
// output to exist on disk.
func (e Expectations) CheckNegative(dir string, report Report) []Diagnostic {
	var diagnostics []Diagnostic

	for _, c := range []struct {
		category  Category
		forbidden PathSet
		reported  PathSet
	}{
		{InputsCategory, e.ForbiddenInputs, report.Inputs},
		{OutputsCategory, e.ForbiddenOutputs, report.Outputs},
	} {
		if !c.forbidden.DisjointFrom(c.reported) {
			diagnostics = append(diagnostics, Diagnostic{
				Kind:     ForbiddenPresent,
				Category: c.category,
				Paths:    c.forbidden.Intersect(c.reported),
			})
		}
	}

	if existing := lo.Filter(e.ForbiddenOutputs, func(p string, _ int) bool { return exists(dir, p) }); len(existing) > 0 {
		diagnostics = append(diagnostics, Diagnostic{
			Kind:     ForbiddenOutputExistsOnFilesystem,
			Category: OutputsCategory,
			Paths:    NewPathSet(existing...),
		})
	}
	return diagnostics
}

// CheckAssertions evaluates every assert expression against the report.
func (e Expectations) CheckAssertions(report Report) []Diagnostic {
	if len(e.Assert) == 0 {
		return nil
	}
	evaluator, err := NewCELEvaluator()
	if err != nil {
		return []Diagnostic{{Kind: AssertionFailed, Message: err.Error()}}
	}

	var diagnostics []Diagnostic
	for _, expr := range e.Assert {
		ok, err := evaluator.Evaluate(expr, report)
		switch {
		case err != nil:
			diagnostics = append(diagnostics, Diagnostic{Kind: AssertionFailed, Expression: expr, Message: err.Error()})
		case !ok:
			diagnostics = append(diagnostics, Diagnostic{Kind: AssertionFailed, Expression: expr})
		}
	}
	return diagnostics
}

// mismatchError folds diagnostics into one ExpectationMismatch error.
func mismatchError(path string, diagnostics []Diagnostic) error {
	if len(diagnostics) == 0 {
		return nil
	}
	errs := lo.Map(diagnostics, func(d Diagnostic, _ int) error { return d })
	return &Error{Kind: ExpectationMismatch, Path: path, Err: errors.Join(errs...)}
}

func exists(dir, path string) bool {
	_, err := os.Stat(filepath.Join(dir, path))
	return err == nil
}
