package fixtures

import (
	"fmt"
	"strings"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
)

const indent = "       "

// FormatResult renders one verdict for the terminal.
func FormatResult(result FixtureResult, noColor bool) string {
	return Render(result.Pretty(), noColor)
}

// FormatSummary renders the pass/total line printed at the end of a suite.
func FormatSummary(stats Stats, noColor bool) string {
	style := "text-green-600 font-bold"
	if !stats.IsOK() {
		style = "text-red-600 font-bold"
	}
	return Render(clicky.Text(fmt.Sprintf(":: Summary: %s tests passed", stats), style), noColor)
}

// Render turns styled text into a terminal string, with or without ANSI colours.
func Render(t api.Text, noColor bool) string {
	if noColor {
		return t.String()
	}
	return t.ANSI()
}

func (f Fixture) Pretty() api.Text {
	t := clicky.Text(f.Name, "italic text-orange-500")
	if f.Description != "" {
		t = t.Space().Append(f.Description, "text-gray-500")
	}
	return t
}

func (f FixtureResult) Pretty() api.Text {
	t := f.Status.Pretty().Space().Append(f.Name, "italic text-orange-500")
	if f.Duration > 0 {
		t = t.Append(fmt.Sprintf(" (%s)", f.Duration.Round(time.Millisecond)), "text-gray-500")
	}
	if f.Description != "" {
		t = t.Space().Append(f.Description, "text-gray-500")
	}

	if len(f.Diagnostics) > 0 {
		for _, d := range f.Diagnostics {
			t = t.Append("\n").Add(d.Pretty())
		}
		if f.Report != nil {
			t = t.Append("\n"+indent+"These dependencies were reported:\n", "text-gray-500").
				Append(indentLines("inputs:  "+f.Report.Inputs.String()+"\noutputs: "+f.Report.Outputs.String()), "text-gray-500")
		}
	} else if f.Error != "" {
		t = t.Append("\n").Append(indent+string(orDefault(f.Kind, "Error"))+": ", "text-red-600 font-bold").
			Append(f.Error, "text-red-600")
		if f.Invocation != nil && f.Invocation.Output() != "" {
			t = t.Append("\n").Append(indentLines(f.Invocation.Output()), "text-gray-500")
		}
	}

	for _, w := range f.Warnings {
		t = t.Append("\n").Append(indent+"Warning: ", "text-yellow-600 font-bold").Append(w.Message, "text-yellow-600")
	}
	return t
}

func (d Diagnostic) Pretty() api.Text {
	t := clicky.Text(indent+string(d.Kind)+": ", "text-red-600 font-bold")
	switch d.Kind {
	case MissingFromResults:
		return t.Append(fmt.Sprintf("Expected %s are not a subset of the results.\n", d.Category)).
			Append(indent + "The following were not found in the results:\n").
			Append(indentLines(strings.Join(d.Paths, "\n")), "text-red-600").
			Append("\n" + indent + "Instead, these were found:\n").
			Append(indentLines(strings.Join(d.Reported, "\n")), "text-gray-500")
	case ForbiddenPresent:
		return t.Append(fmt.Sprintf("Found %s that should not exist:\n", d.Category)).
			Append(indentLines(strings.Join(d.Paths, "\n")), "text-red-600")
	case ResultOutputMissingFromFilesystem:
		return t.Append("Result outputs missing from file system:\n").
			Append(indentLines(strings.Join(d.Paths, "\n")), "text-red-600")
	case ForbiddenOutputExistsOnFilesystem:
		return t.Append("Outputs exist on the file system, but should not:\n").
			Append(indentLines(strings.Join(d.Paths, "\n")), "text-red-600")
	default:
		return t.Append(d.Error())
	}
}

func indentLines(s string) string {
	if s == "" {
		return indent + "(none)"
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}

func orDefault(kind ErrorKind, def string) ErrorKind {
	if kind == "" {
		return ErrorKind(def)
	}
	return kind
}
