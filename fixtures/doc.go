// Package fixtures runs conformance fixtures against a build dependency-tracking tool: a
// program that runs a command and reports which files it read (inputs) and wrote (outputs).
//
// # Fixture files
//
// Each fixture is a JSON file named test.<anything>.json, anywhere under the suite root:
//
//	{
//	  "description": "cp reads its source and writes its destination",
//	  "setup":    [["sh", "-c", "echo hello > a.txt"]],
//	  "command":  ["cp", "a.txt", "b.txt"],
//	  "teardown": [["rm", "-f", "a.txt"]],
//	  "inputs":   ["a.txt"],
//	  "outputs":  ["b.txt"],
//	  "!inputs":  ["c.txt"],
//	  "!outputs": ["a.txt"],
//	  "assert":   ["outputs.all(o, !o.startsWith('/'))"]
//	}
//
// Only `command` is required. All paths are relative to the fixture's directory, and a path
// cannot be both expected and forbidden.
//
// # Running a fixture
//
// For every fixture the Runner:
//
//  1. loads and validates the file (ParseError, SchemaError)
//  2. runs the setup steps in the fixture directory, stopping at the first failure (SetupFailure)
//  3. runs `<tool> --json <results> -- <command...>` in the fixture directory (InvocationFailure)
//  4. runs every teardown step, whatever happened before (TeardownFailure, a warning only)
//  5. reads the results artifact (ResultsError)
//  6. matches the report against the fixture (ExpectationMismatch)
//  7. removes every reported output (CleanupWarning, a warning only)
//
// Each fixture gets its own results artifact, so runs never share mutable state. Fixtures
// are still run one after the other.
//
// # Matching
//
// Expected inputs and outputs must be a subset of what the tool reported; the tool may report
// more. Forbidden inputs and outputs must be disjoint from what it reported. Expected outputs
// must exist on disk and forbidden outputs must not, which catches outputs the tool wrote but
// did not report. Assertions are CEL expressions over the `inputs` and `outputs` lists.
package fixtures
