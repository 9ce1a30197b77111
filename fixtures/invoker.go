package fixtures

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flanksource/gomplate/v3"
)

// DefaultToolArgs is the argument prefix placed between the tool and the fixture command.
// `{{.results}}` expands to the absolute results artifact path; `{{.dir}}` and `{{.name}}`
// to the fixture directory and name.
var DefaultToolArgs = []string{"--json", "{{.results}}", "--"}

// Invoker runs the dependency-tracking tool under test for one fixture.
type Invoker struct {
	// Tool is the path to the tool under test
	Tool string
	// ToolArgs defaults to DefaultToolArgs
	ToolArgs []string
	Executor Executor
}

// Argv builds `<tool> <tool args...> <fixture command...>`.
func (i Invoker) Argv(fixture *Fixture, resultsPath string) (Argv, error) {
	results, err := filepath.Abs(resultsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve results path: %w", err)
	}

	toolArgs := i.ToolArgs
	if len(toolArgs) == 0 {
		toolArgs = DefaultToolArgs
	}

	data := map[string]any{
		"results": results,
		"dir":     fixture.Dir,
		"name":    fixture.Name,
	}

	argv := Argv{i.Tool}
	for _, arg := range toolArgs {
		if !strings.Contains(arg, "{{") {
			argv = append(argv, arg)
			continue
		}
		rendered, err := gomplate.RunTemplate(data, gomplate.Template{Template: arg})
		if err != nil {
			return nil, fmt.Errorf("failed to template tool argument %q: %w", arg, err)
		}
		argv = append(argv, rendered)
	}
	return append(argv, fixture.Command...), nil
}

// Invoke runs the tool in the fixture directory. A failure to build the command line, a
// failure to start, a timeout or a non-zero exit is an InvocationFailure.
func (i Invoker) Invoke(ctx context.Context, fixture *Fixture, resultsPath string) (ExecResult, error) {
	argv, err := i.Argv(fixture, resultsPath)
	if err != nil {
		return ExecResult{}, &Error{Kind: InvocationFailure, Path: fixture.Path, Err: err}
	}

	result := i.Executor.Exec(ctx, fixture.Dir, argv)
	if result.Err != nil {
		return result, &Error{Kind: InvocationFailure, Path: fixture.Path, Err: fmt.Errorf("`%s`: %w", result.Command, result.Err)}
	}
	if result.ExitCode != 0 {
		return result, newError(InvocationFailure, fixture.Path, "%s", result.Reason())
	}
	return result, nil
}
