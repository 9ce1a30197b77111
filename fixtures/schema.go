package fixtures

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/fixture.schema.json
var fixtureSchemaJSON []byte

//go:embed schemas/report.schema.json
var reportSchemaJSON []byte

var (
	fixtureSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema(fixtureSchemaJSON)
	})
	reportSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema(reportSchemaJSON)
	})
)

func compileSchema(data []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
