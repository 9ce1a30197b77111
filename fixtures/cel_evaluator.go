package fixtures

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// CELEvaluator evaluates fixture assertions against a dependency report.
//
// Expressions see two variables, `inputs` and `outputs`, both lists of strings, e.g.
//
//	outputs.exists(o, o.endsWith(".o"))
//	!inputs.exists(i, i.startsWith("/tmp/"))
type CELEvaluator struct {
	env *cel.Env
}

// NewCELEvaluator creates an evaluator with the standard library and string extensions.
func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("inputs", cel.ListType(cel.StringType)),
		cel.Variable("outputs", cel.ListType(cel.StringType)),
		cel.StdLib(),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELEvaluator{env: env}, nil
}

func (e *CELEvaluator) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression %q: %w", expression, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression %q must return a bool, got %s", expression, t)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return prg, nil
}

// Check compiles expression without evaluating it.
func (e *CELEvaluator) Check(expression string) error {
	_, err := e.compile(expression)
	return err
}

// Evaluate runs expression against the report.
func (e *CELEvaluator) Evaluate(expression string, report Report) (bool, error) {
	prg, err := e.compile(expression)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(report.AsMap())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression %q: %w", expression, err)
	}

	if result, ok := out.Value().(bool); ok {
		return result, nil
	}
	return false, fmt.Errorf("CEL expression did not return a boolean: got %T(%v)", out.Value(), out.Value())
}
