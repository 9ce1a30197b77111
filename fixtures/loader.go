package fixtures

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flanksource/commons/logger"
)

// LoadFixture reads and validates a single fixture file.
//
// Invalid JSON is a ParseError. A document that does not match the fixture schema, declares
// a path as both expected and forbidden, or carries an assertion that does not compile is a
// SchemaError. Nothing but the fixture file itself is read. Name is left for the caller,
// which knows the discovery root.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: ParseError, Path: path, Err: err}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Kind: ParseError, Path: path, Err: err}
	}

	schema, err := fixtureSchema()
	if err != nil {
		return nil, &Error{Kind: SchemaError, Path: path, Err: err}
	}
	if err := validateJSON(schema, data); err != nil {
		return nil, &Error{Kind: SchemaError, Path: path, Err: err}
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, &Error{Kind: SchemaError, Path: path, Err: err}
	}
	fixture.Expectations = fixture.Expectations.normalize()

	if err := fixture.Expectations.Validate(); err != nil {
		return nil, &Error{Kind: SchemaError, Path: path, Err: err}
	}

	fixture.Path = path
	fixture.Dir = filepath.Dir(path)

	logger.V(3).Infof("loaded fixture %s: %s", fixture.Path, fixture.Command)
	return &fixture, nil
}

// Validate rejects expectations that contradict themselves: a path that is both expected and
// forbidden in the same category, or an assertion that does not compile.
func (e Expectations) Validate() error {
	var errs []error
	if both := e.Inputs.Intersect(e.ForbiddenInputs); len(both) > 0 {
		errs = append(errs, fmt.Errorf("inputs both expected and forbidden: %s", both))
	}
	if both := e.Outputs.Intersect(e.ForbiddenOutputs); len(both) > 0 {
		errs = append(errs, fmt.Errorf("outputs both expected and forbidden: %s", both))
	}
	if len(e.Assert) > 0 {
		evaluator, err := NewCELEvaluator()
		if err != nil {
			return err
		}
		for _, expr := range e.Assert {
			if err := evaluator.Check(expr); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
