package fixtures_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flanksource/clicky/task"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flanksource/depcheck/fixtures"
)

const fakeTool = "fake-tracer"

type call struct {
	dir  string
	argv fixtures.Argv
}

// fakeExecutor plays both the shell (touch, cp, rm, true, false) and the tool under test.
// The tool runs the wrapped command, then writes whatever report the test configured.
type fakeExecutor struct {
	calls []call
	// report returns the inputs and outputs to write, or nil to write no results artifact
	report func(command fixtures.Argv) map[string]any
	// toolExit overrides the tool's exit code when non-zero
	toolExit int
	// toolErr is returned instead of running the tool, e.g. a timeout
	toolErr error
	// interrupt is called by the `interrupt` step, standing in for a Ctrl-C mid-fixture
	interrupt context.CancelFunc
}

func (f *fakeExecutor) Exec(ctx context.Context, dir string, argv fixtures.Argv) fixtures.ExecResult {
	f.calls = append(f.calls, call{dir: dir, argv: argv})
	result := fixtures.ExecResult{Command: argv.String(), Dir: dir}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	if argv[0] == "interrupt" {
		f.interrupt()
		return result
	}
	if argv[0] != fakeTool {
		result.ExitCode = builtin(dir, argv)
		return result
	}
	if f.toolErr != nil {
		result.ExitCode = -1
		result.Err = f.toolErr
		return result
	}

	// fake-tracer --json <results> -- <command...>
	resultsPath, command := argv[2], argv[4:]
	result.ExitCode = builtin(dir, command)
	if f.toolExit != 0 {
		result.ExitCode = f.toolExit
		return result
	}
	if f.report != nil {
		if report := f.report(command); report != nil {
			data, _ := json.Marshal(report)
			_ = os.WriteFile(resultsPath, data, 0o644)
		}
	}
	return result
}

func (f *fakeExecutor) commands() []string {
	var out []string
	for _, c := range f.calls {
		if c.argv[0] == fakeTool {
			out = append(out, fakeTool)
		} else {
			out = append(out, c.argv.String())
		}
	}
	return out
}

func (f *fakeExecutor) resultsPaths() []string {
	var out []string
	for _, c := range f.calls {
		if c.argv[0] == fakeTool {
			out = append(out, c.argv[2])
		}
	}
	return out
}

func builtin(dir string, argv fixtures.Argv) int {
	switch argv[0] {
	case "true":
		return 0
	case "touch":
		for _, name := range argv[1:] {
			if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
				return 1
			}
		}
		return 0
	case "cp":
		data, err := os.ReadFile(filepath.Join(dir, argv[1]))
		if err != nil {
			return 1
		}
		if err := os.WriteFile(filepath.Join(dir, argv[2]), data, 0o644); err != nil {
			return 1
		}
		return 0
	case "rm":
		for _, name := range argv[1:] {
			_ = os.Remove(filepath.Join(dir, name))
		}
		return 0
	case "false":
		return 1
	}
	return 127
}

func report(inputs, outputs []string) map[string]any {
	return map[string]any{
		"inputs":  append([]string{}, inputs...),
		"outputs": append([]string{}, outputs...),
	}
}

func writeFixture(dir, name string, fixture map[string]any) string {
	data, err := json.Marshal(fixture)
	Expect(err).NotTo(HaveOccurred())
	path := filepath.Join(dir, name)
	Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	Expect(os.WriteFile(path, data, 0o644)).To(Succeed())
	return path
}

var _ = Describe("Runner", func() {
	var (
		root       string
		resultsDir string
		executor   *fakeExecutor
		out        *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "depcheck-suite-*")
		Expect(err).NotTo(HaveOccurred())
		resultsDir, err = os.MkdirTemp("", "depcheck-results-parent-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, root)
		DeferCleanup(os.RemoveAll, resultsDir)

		executor = &fakeExecutor{}
		out = &bytes.Buffer{}
	})

	run := func(ctx context.Context, opts fixtures.RunnerOptions) *fixtures.SuiteResult {
		opts.Root = root
		opts.Tool = fakeTool
		opts.ResultsDir = resultsDir
		opts.Executor = executor
		opts.Out = out
		opts.NoColor = true
		runner, err := fixtures.NewRunner(opts)
		Expect(err).NotTo(HaveOccurred())
		suite, err := runner.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		return suite
	}

	only := func(suite *fixtures.SuiteResult) fixtures.FixtureResult {
		Expect(suite.Results).To(HaveLen(1))
		return suite.Results[0]
	}

	Context("cp a.txt b.txt", func() {
		BeforeEach(func() {
			Expect(os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644)).To(Succeed())
			writeFixture(root, "test.cp.json", map[string]any{
				"command": []string{"cp", "a.txt", "b.txt"},
				"inputs":  []string{"a.txt"},
				"outputs": []string{"b.txt"},
			})
		})

		It("passes when the tool reports the read and the write, then removes the output", func() {
			executor.report = func(fixtures.Argv) map[string]any {
				return report([]string{"a.txt", "/usr/lib/libc.so.6"}, []string{"b.txt"})
			}

			suite := run(context.Background(), fixtures.RunnerOptions{})

			result := only(suite)
			Expect(result.Status).To(Equal(task.StatusPASS))
			Expect(result.Name).To(Equal("test.cp"))
			Expect(result.Diagnostics).To(BeEmpty())
			Expect(result.Warnings).To(BeEmpty())
			Expect(suite.Stats.IsOK()).To(BeTrue())

			Expect(filepath.Join(root, "b.txt")).NotTo(BeAnExistingFile())
			Expect(filepath.Join(root, "a.txt")).To(BeAnExistingFile())
			Expect(executor.calls[0].dir).To(Equal(root))
			Expect(out.String()).To(ContainSubstring("1/1 (100%)"))
		})

		It("fails when the tool misses the output", func() {
			executor.report = func(fixtures.Argv) map[string]any {
				return report([]string{"a.txt"}, nil)
			}

			suite := run(context.Background(), fixtures.RunnerOptions{})

			result := only(suite)
			Expect(result.Status).To(Equal(task.StatusFAIL))
			Expect(result.Kind).To(Equal(fixtures.ExpectationMismatch))
			Expect(result.Diagnostics).To(HaveLen(1))
			Expect(result.Diagnostics[0].Kind).To(Equal(fixtures.MissingFromResults))
			Expect(result.Diagnostics[0].Category).To(Equal(fixtures.OutputsCategory))
			Expect(result.Diagnostics[0].Paths).To(Equal(fixtures.PathSet{"b.txt"}))
			Expect(suite.Stats.IsOK()).To(BeFalse())

			Expect(out.String()).To(ContainSubstring("The following were not found in the results:"))
			Expect(out.String()).To(ContainSubstring("These dependencies were reported:"))
		})

		It("fails when the tool writes no results artifact, after tearing down", func() {
			writeFixture(root, "test.cp.json", map[string]any{
				"command":  []string{"cp", "a.txt", "b.txt"},
				"teardown": [][]string{{"rm", "b.txt"}},
				"outputs":  []string{"b.txt"},
			})

			suite := run(context.Background(), fixtures.RunnerOptions{})

			result := only(suite)
			Expect(result.Status).To(Equal(task.StatusFAIL))
			Expect(result.Kind).To(Equal(fixtures.ResultsError))
			Expect(executor.commands()).To(Equal([]string{fakeTool, "rm b.txt"}))
			Expect(result.Teardown).To(HaveLen(1))
			Expect(result.Teardown[0].Failed()).To(BeFalse())
			Expect(filepath.Join(root, "b.txt")).NotTo(BeAnExistingFile())
		})

		It("fails when the tool times out", func() {
			executor.toolErr = fmt.Errorf("%w after 1s", fixtures.ErrTimeout)

			result := only(run(context.Background(), fixtures.RunnerOptions{}))
			Expect(result.Status).To(Equal(task.StatusFAIL))
			Expect(result.Kind).To(Equal(fixtures.InvocationFailure))
			Expect(result.Error).To(ContainSubstring("timed out after 1s"))
		})

		It("fails when the tool exits non-zero", func() {
			executor.toolExit = 2

			result := only(run(context.Background(), fixtures.RunnerOptions{}))
			Expect(result.Status).To(Equal(task.StatusFAIL))
			Expect(result.Kind).To(Equal(fixtures.InvocationFailure))
			Expect(result.Error).To(ContainSubstring("exited with code 2"))
		})
	})

	It("fails when a forbidden output is reported", func() {
		writeFixture(root, "test.forbidden.json", map[string]any{
			"command":  []string{"true"},
			"!outputs": []string{"c.txt"},
		})
		executor.report = func(fixtures.Argv) map[string]any {
			return report(nil, []string{"c.txt"})
		}

		result := only(run(context.Background(), fixtures.RunnerOptions{}))
		Expect(result.Status).To(Equal(task.StatusFAIL))
		Expect(result.Diagnostics).To(HaveLen(1))
		Expect(result.Diagnostics[0].Kind).To(Equal(fixtures.ForbiddenPresent))
		Expect(result.Diagnostics[0].Paths).To(Equal(fixtures.PathSet{"c.txt"}))
	})

	It("fails when a reported output was never written", func() {
		writeFixture(root, "test.phantom.json", map[string]any{
			"command": []string{"true"},
			"outputs": []string{"d.txt"},
		})
		executor.report = func(fixtures.Argv) map[string]any {
			return report(nil, []string{"d.txt"})
		}

		result := only(run(context.Background(), fixtures.RunnerOptions{}))
		Expect(result.Status).To(Equal(task.StatusFAIL))
		Expect(result.Diagnostics).To(HaveLen(1))
		Expect(result.Diagnostics[0].Kind).To(Equal(fixtures.ResultOutputMissingFromFilesystem))
		Expect(result.Warnings).To(BeEmpty(), "cleaning up an output that does not exist is not a warning")
	})

	It("stops at a failing setup step, skips the tool and still tears down", func() {
		writeFixture(root, "test.setup.json", map[string]any{
			"setup":    [][]string{{"touch", "x.txt"}, {"false"}, {"touch", "never.txt"}},
			"command":  []string{"true"},
			"teardown": [][]string{{"rm", "x.txt"}},
		})

		result := only(run(context.Background(), fixtures.RunnerOptions{}))
		Expect(result.Status).To(Equal(task.StatusFAIL))
		Expect(result.Kind).To(Equal(fixtures.SetupFailure))
		Expect(result.Invocation).To(BeNil())
		Expect(executor.commands()).To(Equal([]string{"touch x.txt", "false", "rm x.txt"}))
		Expect(filepath.Join(root, "x.txt")).NotTo(BeAnExistingFile())
		Expect(filepath.Join(root, "never.txt")).NotTo(BeAnExistingFile())
	})

	It("runs setup, the tool and teardown in order", func() {
		writeFixture(root, "test.order.json", map[string]any{
			"setup":    [][]string{{"touch", "a.txt"}, {"touch", "b.txt"}},
			"command":  []string{"cp", "a.txt", "c.txt"},
			"teardown": [][]string{{"rm", "a.txt"}, {"rm", "b.txt"}},
			"inputs":   []string{"a.txt"},
			"outputs":  []string{"c.txt"},
		})
		executor.report = func(fixtures.Argv) map[string]any {
			return report([]string{"a.txt"}, []string{"c.txt"})
		}

		result := only(run(context.Background(), fixtures.RunnerOptions{}))
		Expect(result.Status).To(Equal(task.StatusPASS))
		Expect(executor.commands()).To(Equal([]string{"touch a.txt", "touch b.txt", fakeTool, "rm a.txt", "rm b.txt"}))
		Expect(result.Setup).To(HaveLen(2))
		Expect(result.Teardown).To(HaveLen(2))
	})

	It("tears down even when the tool fails", func() {
		writeFixture(root, "test.teardown.json", map[string]any{
			"command":  []string{"true"},
			"teardown": [][]string{{"true"}},
		})
		executor.toolExit = 1

		run(context.Background(), fixtures.RunnerOptions{})
		Expect(executor.commands()).To(Equal([]string{fakeTool, "true"}))
	})

	It("reports a failing teardown as a warning without failing the fixture", func() {
		writeFixture(root, "test.warn.json", map[string]any{
			"command":  []string{"true"},
			"teardown": [][]string{{"false"}, {"true"}},
		})
		executor.report = func(fixtures.Argv) map[string]any { return report(nil, nil) }

		result := only(run(context.Background(), fixtures.RunnerOptions{}))
		Expect(result.Status).To(Equal(task.StatusPASS))
		Expect(result.Warnings).To(HaveLen(1))
		Expect(result.Warnings[0].Kind).To(Equal(fixtures.TeardownFailure))
		Expect(result.Teardown).To(HaveLen(2))
	})

	It("marks unloadable fixtures as errors and keeps going", func() {
		writeFixture(root, "a/test.good.json", map[string]any{"command": []string{"true"}})
		Expect(os.MkdirAll(filepath.Join(root, "b"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, "b", "test.broken.json"), []byte("{"), 0o644)).To(Succeed())
		writeFixture(root, "c/test.invalid.json", map[string]any{"inputs": []string{"a"}})
		executor.report = func(fixtures.Argv) map[string]any { return report(nil, nil) }

		suite := run(context.Background(), fixtures.RunnerOptions{})
		Expect(suite.Stats.Total).To(Equal(3))
		Expect(suite.Stats.Passed).To(Equal(1))
		Expect(suite.Stats.Error).To(Equal(2))

		kinds := map[string]fixtures.ErrorKind{}
		for _, r := range suite.Results {
			kinds[r.Name] = r.Kind
		}
		Expect(kinds).To(Equal(map[string]fixtures.ErrorKind{
			"a/test.good":    "",
			"b/test.broken":  fixtures.ParseError,
			"c/test.invalid": fixtures.SchemaError,
		}))
	})

	It("gives every fixture its own results artifact and removes them all", func() {
		for _, name := range []string{"x/test.one.json", "y/test.one.json", "test.two.json"} {
			writeFixture(root, name, map[string]any{"command": []string{"true"}})
		}
		executor.report = func(fixtures.Argv) map[string]any { return report(nil, nil) }

		suite := run(context.Background(), fixtures.RunnerOptions{})
		Expect(suite.Stats.Passed).To(Equal(3))

		paths := executor.resultsPaths()
		Expect(paths).To(HaveLen(3))
		Expect(paths[0]).NotTo(Equal(paths[1]))
		Expect(paths[1]).NotTo(Equal(paths[2]))
		Expect(paths[0]).NotTo(Equal(paths[2]))
		for _, p := range paths {
			Expect(filepath.IsAbs(p)).To(BeTrue())
			Expect(p).NotTo(BeAnExistingFile())
		}

		entries, err := os.ReadDir(resultsDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("runs only the fixtures selected by the filter", func() {
		writeFixture(root, "c/test.a.json", map[string]any{"command": []string{"true"}})
		writeFixture(root, "go/test.b.json", map[string]any{"command": []string{"true"}})
		executor.report = func(fixtures.Argv) map[string]any { return report(nil, nil) }

		suite := run(context.Background(), fixtures.RunnerOptions{Filter: []string{"c/*"}})
		Expect(only(suite).Name).To(Equal("c/test.a"))
	})

	It("passes an empty suite", func() {
		suite := run(context.Background(), fixtures.RunnerOptions{})
		Expect(suite.Results).To(BeEmpty())
		Expect(suite.Stats.IsOK()).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("0/0 (100%)"))
	})

	It("skips every fixture once the context is cancelled", func() {
		writeFixture(root, "test.a.json", map[string]any{"command": []string{"true"}})
		writeFixture(root, "test.b.json", map[string]any{"command": []string{"true"}})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		suite := run(ctx, fixtures.RunnerOptions{})
		Expect(suite.Stats.Skipped).To(Equal(2))
		Expect(suite.Stats.IsOK()).To(BeFalse())
		Expect(executor.calls).To(BeEmpty())
	})

	It("skips the fixture interrupted mid-setup and still tears it down", func() {
		writeFixture(root, "test.a.json", map[string]any{
			"setup":    [][]string{{"interrupt"}, {"touch", "x.txt"}},
			"command":  []string{"true"},
			"teardown": [][]string{{"rm", "x.txt"}},
		})
		writeFixture(root, "test.b.json", map[string]any{"command": []string{"true"}})
		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)
		executor.interrupt = cancel

		suite := run(ctx, fixtures.RunnerOptions{})
		Expect(suite.Stats.Total).To(Equal(2))
		Expect(suite.Stats.Skipped).To(Equal(2))
		Expect(suite.Stats.Failed).To(BeZero())
		for _, r := range suite.Results {
			Expect(r.Status).To(Equal(task.StatusSKIP))
			Expect(r.Kind).To(BeEmpty())
		}
		Expect(executor.commands()).To(Equal([]string{"interrupt", "touch x.txt", "rm x.txt"}))
	})

	It("follows a symlinked suite root", func() {
		target := filepath.Join(resultsDir, "real")
		writeFixture(target, "c/test.cp.json", map[string]any{"command": []string{"true"}})
		link := filepath.Join(resultsDir, "link")
		Expect(os.Symlink(target, link)).To(Succeed())
		executor.report = func(fixtures.Argv) map[string]any { return report(nil, nil) }

		runner, err := fixtures.NewRunner(fixtures.RunnerOptions{Root: link, Tool: fakeTool, Executor: executor, Out: out, NoColor: true})
		Expect(err).NotTo(HaveOccurred())
		suite, err := runner.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		result := only(suite)
		Expect(result.Name).To(Equal("c/test.cp"))
		Expect(result.Status).To(Equal(task.StatusPASS))
		Expect(executor.calls[0].dir).To(Equal(filepath.Join(link, "c")))
	})

	It("writes the suite report", func() {
		writeFixture(root, "test.a.json", map[string]any{"command": []string{"true"}})
		executor.report = func(fixtures.Argv) map[string]any { return report(nil, nil) }
		reportPath := filepath.Join(resultsDir, "out", "report.json")

		run(context.Background(), fixtures.RunnerOptions{ReportPath: reportPath})

		data, err := os.ReadFile(reportPath)
		Expect(err).NotTo(HaveOccurred())
		var written fixtures.SuiteResult
		Expect(json.Unmarshal(data, &written)).To(Succeed())
		Expect(written.Stats.Passed).To(Equal(1))
		Expect(written.Results[0].Name).To(Equal("test.a"))
	})

	It("fails the whole suite when the root cannot be read", func() {
		runner, err := fixtures.NewRunner(fixtures.RunnerOptions{
			Root:     filepath.Join(root, "missing"),
			Tool:     fakeTool,
			Executor: executor,
			Out:      out,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = runner.Run(context.Background())
		Expect(fixtures.IsKind(err, fixtures.DiscoveryError)).To(BeTrue())
	})

	It("requires a tool", func() {
		_, err := fixtures.NewRunner(fixtures.RunnerOptions{Root: root})
		Expect(err).To(HaveOccurred())
	})
})
