package fixtures

import (
	"context"
	"fmt"

	"github.com/flanksource/commons/logger"
)

// RunSetup runs the fixture's setup steps in order, in the fixture directory, stopping at
// the first step that fails. That failure is returned as a SetupFailure.
func RunSetup(ctx context.Context, executor Executor, fixture *Fixture) ([]ExecResult, error) {
	var steps []ExecResult
	for i, argv := range fixture.Setup {
		step := executor.Exec(ctx, fixture.Dir, argv)
		steps = append(steps, step)
		if step.Err != nil {
			return steps, &Error{Kind: SetupFailure, Path: fixture.Path, Err: fmt.Errorf("setup step %d/%d: `%s`: %w", i+1, len(fixture.Setup), step.Command, step.Err)}
		}
		if step.Failed() {
			return steps, newError(SetupFailure, fixture.Path, "setup step %d/%d: %s", i+1, len(fixture.Setup), step.Reason())
		}
		logger.V(3).Infof("setup step %d/%d: %s", i+1, len(fixture.Setup), argv)
	}
	return steps, nil
}

// RunTeardown runs every teardown step in order, in the fixture directory. Failed steps do
// not stop the remaining ones; each is returned as a TeardownFailure warning.
//
// Teardown still runs when ctx has been cancelled, so a fixture never leaves its setup behind.
func RunTeardown(ctx context.Context, executor Executor, fixture *Fixture) ([]ExecResult, []error) {
	ctx = context.WithoutCancel(ctx)

	var steps []ExecResult
	var warnings []error
	for i, argv := range fixture.Teardown {
		step := executor.Exec(ctx, fixture.Dir, argv)
		steps = append(steps, step)
		if step.Failed() {
			err := newError(TeardownFailure, fixture.Path, "teardown step %d/%d: %s", i+1, len(fixture.Teardown), step.Reason())
			logger.Warnf("%v", err)
			warnings = append(warnings, err)
		}
	}
	return steps, warnings
}
