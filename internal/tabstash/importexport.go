package tabstash

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// importSchema enforces the exchange payload shape: a worksheets array is
// required, with no partial merge on failure.
const importSchema = `{
	"type": "object",
	"required": ["worksheets"],
	"properties": {
		"worksheets": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "name"],
				"properties": {
					"id": {"type": "string"},
					"name": {"type": "string"},
					"created": {"type": "string"},
					"tabs": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["url"],
							"properties": {
								"url": {"type": "string"},
								"name": {"type": "string"},
								"created": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

var (
	importSchemaOnce     sync.Once
	importSchemaCompiled *jsonschema.Schema
	importSchemaErr      error
)

func compiledImportSchema() (*jsonschema.Schema, error) {
	importSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(importSchema))
		if err != nil {
			importSchemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("tabstash-import.json", doc); err != nil {
			importSchemaErr = err
			return
		}
		importSchemaCompiled, importSchemaErr = compiler.Compile("tabstash-import.json")
	})
	return importSchemaCompiled, importSchemaErr
}

// ParseImport validates a user-supplied exchange payload and decodes it.
// Anything that does not carry a worksheets array is rejected outright.
func ParseImport(data []byte) (Collection, error) {
	schema, err := compiledImportSchema()
	if err != nil {
		return Collection{}, err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Collection{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if err := schema.Validate(instance); err != nil {
		return Collection{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	col, err := DecodeCollection(data)
	if err != nil {
		return Collection{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return col, nil
}
