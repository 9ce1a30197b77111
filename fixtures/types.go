package fixtures

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// PathSet is a deduplicated, sorted set of paths relative to a fixture directory.
type PathSet []string

// NewPathSet builds a PathSet, dropping duplicates and empty entries.
func NewPathSet(paths ...string) PathSet {
	set := lo.Uniq(lo.Compact(paths))
	slices.Sort(set)
	return PathSet(set)
}

// Minus returns the paths of s that are not in other.
func (s PathSet) Minus(other PathSet) PathSet {
	left, _ := lo.Difference(s, other)
	return NewPathSet(left...)
}

// Intersect returns the paths present in both s and other.
func (s PathSet) Intersect(other PathSet) PathSet {
	return NewPathSet(lo.Intersect(s, other)...)
}

// SubsetOf reports whether every path in s is also in other.
func (s PathSet) SubsetOf(other PathSet) bool {
	return len(s.Minus(other)) == 0
}

// DisjointFrom reports whether s and other share no path.
func (s PathSet) DisjointFrom(other PathSet) bool {
	return len(s.Intersect(other)) == 0
}

func (s PathSet) String() string {
	return "{" + strings.Join(lo.Map(s, func(p string, _ int) string { return `"` + p + `"` }), ", ") + "}"
}

// Argv is one command line: the program followed by its arguments.
type Argv []string

func (a Argv) String() string {
	return strings.Join(a, " ")
}

// Expectations are the positive and negative dependency sets a fixture declares.
type Expectations struct {
	// Inputs must all appear in the reported inputs
	Inputs PathSet `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	// Outputs must all appear in the reported outputs and exist on disk
	Outputs PathSet `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	// ForbiddenInputs must not appear in the reported inputs
	ForbiddenInputs PathSet `json:"!inputs,omitempty" yaml:"!inputs,omitempty"`
	// ForbiddenOutputs must not appear in the reported outputs nor exist on disk
	ForbiddenOutputs PathSet `json:"!outputs,omitempty" yaml:"!outputs,omitempty"`
	// Assert holds CEL expressions over `inputs` and `outputs` that must evaluate to true
	Assert []string `json:"assert,omitempty" yaml:"assert,omitempty"`
}

func (e Expectations) normalize() Expectations {
	return Expectations{
		Inputs:           NewPathSet(e.Inputs...),
		Outputs:          NewPathSet(e.Outputs...),
		ForbiddenInputs:  NewPathSet(e.ForbiddenInputs...),
		ForbiddenOutputs: NewPathSet(e.ForbiddenOutputs...),
		Assert:           lo.Compact(e.Assert),
	}
}

// Fixture is one declared test case, loaded from a test.*.json file.
type Fixture struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Command is the argv of the command under test
	Command  Argv   `json:"command" yaml:"command"`
	Setup    []Argv `json:"setup,omitempty" yaml:"setup,omitempty"`
	Teardown []Argv `json:"teardown,omitempty" yaml:"teardown,omitempty"`

	Expectations `json:",inline" yaml:",inline"`

	// Name is the fixture path relative to the discovery root, without extension
	Name string `json:"-" yaml:"-"`
	// Path is the fixture file
	Path string `json:"-" yaml:"-"`
	// Dir is the directory containing the fixture; all fixture paths are relative to it
	Dir string `json:"-" yaml:"-"`
}

// Report is the dependency report the tool under test wrote for one run.
type Report struct {
	Inputs  PathSet `json:"inputs" yaml:"inputs"`
	Outputs PathSet `json:"outputs" yaml:"outputs"`
}

func (r Report) AsMap() map[string]any {
	return map[string]any{
		"inputs":  []string(r.Inputs),
		"outputs": []string(r.Outputs),
	}
}
