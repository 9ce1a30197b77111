package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/depcheck/shutdown"
)

// RunnerOptions configures a suite run.
type RunnerOptions struct {
	// Root is the directory searched for fixtures
	Root string
	// Pattern selects fixture files, defaults to DefaultPattern
	Pattern string
	// Filter selects fixtures by name; a leading "!" excludes
	Filter []string
	// Tool is the dependency-tracking tool under test
	Tool string
	// ToolArgs is the argument prefix before the fixture command, defaults to DefaultToolArgs
	ToolArgs []string
	// ResultsDir is where per-fixture results artifacts are created, defaults to the temp dir
	ResultsDir string
	// Timeout kills any setup, teardown or tool process that runs longer; zero disables it
	Timeout time.Duration
	// ReportPath, when set, receives the suite result as JSON or YAML
	ReportPath string
	NoColor    bool

	// Executor runs subprocesses, defaults to a ClickyExecutor
	Executor Executor
	// Out receives the per-fixture verdicts and the summary, defaults to stdout
	Out io.Writer
}

// Runner drives every discovered fixture through
// load → setup → invoke → teardown → read results → match → cleanup, one at a time.
type Runner struct {
	options  RunnerOptions
	executor Executor
	invoker  Invoker
	out      io.Writer
}

// NewRunner creates a fixture runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Tool == "" {
		return nil, errors.New("no tool under test specified")
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}

	// the tool runs from each fixture directory, so relative tool paths are resolved now
	if IsPath(opts.Tool) && !filepath.IsAbs(opts.Tool) {
		abs, err := filepath.Abs(opts.Tool)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tool path: %w", err)
		}
		opts.Tool = abs
	}

	executor := opts.Executor
	if executor == nil {
		executor = ClickyExecutor{Timeout: opts.Timeout}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &Runner{
		options:  opts,
		executor: executor,
		invoker: Invoker{
			Tool:     opts.Tool,
			ToolArgs: opts.ToolArgs,
			Executor: executor,
		},
		out: out,
	}, nil
}

// Run executes every fixture under the root. The returned error is non-nil only when the
// suite could not run at all (a DiscoveryError, or no place for results artifacts);
// failing fixtures are reported through SuiteResult.Stats.
func (r *Runner) Run(ctx context.Context) (*SuiteResult, error) {
	paths, err := Discover(r.options.Root, r.options.Pattern)
	if err != nil {
		return nil, err
	}

	artifacts, err := NewResultsArtifacts(r.options.ResultsDir)
	if err != nil {
		return nil, err
	}
	removeHook := shutdown.AddHookWithPriority("remove results artifacts", shutdown.PriorityArtifacts, func() {
		_ = artifacts.Close()
	})
	defer func() {
		removeHook()
		if err := artifacts.Close(); err != nil {
			logger.Warnf("failed to remove results directory %s: %v", artifacts.Dir, err)
		}
	}()

	suite := &SuiteResult{Root: r.options.Root, Tool: r.options.Tool}
	for path := range paths {
		name := NameOf(r.options.Root, path)
		if !MatchesFilter(name, r.options.Filter) {
			logger.V(2).Infof("skipping %s: filtered out", name)
			continue
		}

		var result FixtureResult
		if ctx.Err() != nil {
			result = newFixtureResult(name, path).Skip("not run: suite interrupted")
		} else {
			logger.V(1).Infof(":: Test '%s'...", name)
			result = r.RunFixture(ctx, path, name, artifacts)
		}

		suite.Results = append(suite.Results, result)
		suite.Stats = suite.Stats.Add(&result)
		fmt.Fprintln(r.out, FormatResult(result, r.options.NoColor))
	}

	if suite.Stats.Total == 0 {
		logger.Warnf("no fixtures matching %s found under %s", r.options.Pattern, r.options.Root)
	}
	fmt.Fprintln(r.out, FormatSummary(suite.Stats, r.options.NoColor))

	if r.options.ReportPath != "" {
		if err := WriteReport(r.options.ReportPath, *suite); err != nil {
			logger.Errorf("%v", err)
		}
	}
	return suite, nil
}

// RunFixture runs one fixture file end to end. Every failure is folded into the verdict. A
// setup or tool step that fails after ctx is cancelled marks the fixture skipped; teardown
// still runs.
func (r *Runner) RunFixture(ctx context.Context, path, name string, artifacts *ResultsArtifacts) FixtureResult {
	result := newFixtureResult(name, path)

	fixture, err := LoadFixture(path)
	if err != nil {
		return result.Fail(err).Done()
	}
	fixture.Name = name
	result.Description = fixture.Description
	result.Command = fixture.Command

	result.Setup, err = RunSetup(ctx, r.executor, fixture)

	var resultsPath string
	if err == nil {
		resultsPath, err = artifacts.Allocate(fixture)
		if err != nil {
			err = &Error{Kind: InvocationFailure, Path: path, Err: err}
		} else {
			defer artifacts.Release(resultsPath)
			var invocation ExecResult
			invocation, err = r.invoker.Invoke(ctx, fixture, resultsPath)
			result.Invocation = &invocation
		}
	}

	teardown, warnings := RunTeardown(ctx, r.executor, fixture)
	result.Teardown = teardown
	result = result.Warn(warnings...)

	if err != nil {
		if ctx.Err() != nil {
			logger.V(1).Infof("%s interrupted: %v", name, err)
			return result.Skip("not run: suite interrupted").Done()
		}
		return result.Fail(err).Done()
	}

	report, err := ReadReport(resultsPath)
	if err != nil {
		return result.Fail(err).Done()
	}
	result.Report = report

	result.Diagnostics = fixture.Evaluate(fixture.Dir, *report)
	if err := mismatchError(path, result.Diagnostics); err != nil {
		result = result.Fail(err)
	}

	result = result.Warn(Cleanup(fixture.Dir, report.Outputs)...)
	return result.Done()
}

// NameOf names a fixture by its path relative to the discovery root, without extension.
func NameOf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
}

// IsPath reports whether tool names a file rather than a program to look up in PATH.
func IsPath(tool string) bool {
	return strings.ContainsRune(tool, '/') || strings.ContainsRune(tool, filepath.Separator)
}
