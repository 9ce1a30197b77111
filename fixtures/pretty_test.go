package fixtures_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flanksource/clicky/task"

	"github.com/flanksource/depcheck/fixtures"
)

var _ = Describe("Fixture Result Pretty", func() {
	DescribeTable("should format fixture results",
		func(result fixtures.FixtureResult, expectedContains []string) {
			output := fixtures.FormatResult(result, true)
			Expect(output).To(ContainSubstring(result.Name))
			for _, s := range expectedContains {
				Expect(output).To(ContainSubstring(s))
			}
		},
		Entry("passing fixture",
			fixtures.FixtureResult{Name: "c/test.cp", Status: task.StatusPASS, Duration: 1200 * time.Millisecond},
			[]string{"1.2s"}),
		Entry("missing output",
			fixtures.FixtureResult{
				Name:   "c/test.cp",
				Status: task.StatusFAIL,
				Diagnostics: []fixtures.Diagnostic{{
					Kind:     fixtures.MissingFromResults,
					Category: fixtures.OutputsCategory,
					Paths:    fixtures.NewPathSet("b.txt"),
					Reported: fixtures.NewPathSet("a.txt"),
				}},
				Report: &fixtures.Report{Inputs: fixtures.NewPathSet("a.txt"), Outputs: fixtures.NewPathSet("a.txt")},
			},
			[]string{
				"MissingFromResults",
				"Expected outputs are not a subset of the results.",
				"The following were not found in the results:",
				"Instead, these were found:",
				"These dependencies were reported:",
				`outputs: {"a.txt"}`,
			}),
		Entry("forbidden output",
			fixtures.FixtureResult{
				Name:        "test.forbidden",
				Status:      task.StatusFAIL,
				Diagnostics: []fixtures.Diagnostic{{Kind: fixtures.ForbiddenPresent, Category: fixtures.OutputsCategory, Paths: fixtures.NewPathSet("c.txt")}},
			},
			[]string{"Found outputs that should not exist:", "c.txt"}),
		Entry("phantom output",
			fixtures.FixtureResult{
				Name:        "test.phantom",
				Status:      task.StatusFAIL,
				Diagnostics: []fixtures.Diagnostic{{Kind: fixtures.ResultOutputMissingFromFilesystem, Paths: fixtures.NewPathSet("d.txt")}},
			},
			[]string{"Result outputs missing from file system:", "d.txt"}),
		Entry("assertion",
			fixtures.FixtureResult{
				Name:        "test.assert",
				Status:      task.StatusFAIL,
				Diagnostics: []fixtures.Diagnostic{{Kind: fixtures.AssertionFailed, Expression: "outputs.size() == 1"}},
			},
			[]string{`assertion "outputs.size() == 1" evaluated to false`}),
		Entry("setup failure with output",
			fixtures.FixtureResult{
				Name:       "test.setup",
				Status:     task.StatusFAIL,
				Kind:       fixtures.InvocationFailure,
				Error:      "`tracer` exited with code 3",
				Invocation: &fixtures.ExecResult{Command: "tracer", ExitCode: 3, Stderr: "ptrace: operation not permitted"},
			},
			[]string{"InvocationFailure: ", "exited with code 3", "ptrace: operation not permitted"}),
		Entry("warnings",
			fixtures.FixtureResult{
				Name:     "test.warn",
				Status:   task.StatusPASS,
				Warnings: []fixtures.Warning{{Kind: fixtures.TeardownFailure, Message: "teardown step 1/1: `false` exited with code 1"}},
			},
			[]string{"Warning: ", "teardown step 1/1"}),
	)

	It("should format the summary", func() {
		Expect(fixtures.FormatSummary(fixtures.Stats{Total: 4, Passed: 3, Failed: 1}, true)).To(ContainSubstring(":: Summary: 3/4 (75%) tests passed"))
		Expect(fixtures.FormatSummary(fixtures.Stats{}, true)).To(ContainSubstring("0/0 (100%)"))
	})

	It("should indent diagnostic paths", func() {
		output := fixtures.FormatResult(fixtures.FixtureResult{
			Name:        "test.indent",
			Status:      task.StatusFAIL,
			Diagnostics: []fixtures.Diagnostic{{Kind: fixtures.ForbiddenPresent, Category: fixtures.InputsCategory, Paths: fixtures.NewPathSet("a.txt", "b.txt")}},
		}, true)
		Expect(output).To(ContainSubstring("\n       a.txt\n       b.txt"))
	})
})
