package fixtures

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/flanksource/commons/logger"
)

// ReadReport parses the results artifact the tool under test wrote.
//
// A missing file, invalid JSON, or an `inputs`/`outputs` key that is absent or not a list of
// strings is a ResultsError.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newError(ResultsError, path, "results artifact was not written")
	} else if err != nil {
		return nil, &Error{Kind: ResultsError, Path: path, Err: err}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Kind: ResultsError, Path: path, Err: err}
	}

	schema, err := reportSchema()
	if err != nil {
		return nil, &Error{Kind: ResultsError, Path: path, Err: err}
	}
	if err := validateJSON(schema, data); err != nil {
		return nil, &Error{Kind: ResultsError, Path: path, Err: err}
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, &Error{Kind: ResultsError, Path: path, Err: err}
	}
	report.Inputs = NewPathSet(report.Inputs...)
	report.Outputs = NewPathSet(report.Outputs...)

	logger.V(3).Infof("report %s: %d inputs, %d outputs", path, len(report.Inputs), len(report.Outputs))
	return &report, nil
}
