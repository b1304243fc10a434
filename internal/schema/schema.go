// Package schema validates serialized SourceUnits against the embedded JSON
// Schema.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"hohparser/internal/extractor"
)

// URL is the $id of the embedded SourceUnit schema.
const URL = "https://hohparser.local/schemas/sourceunit.schema.json"

//go:embed sourceunit.schema.json
var sourceUnitSchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Raw returns the schema document.
func Raw() []byte {
	return append([]byte(nil), sourceUnitSchema...)
}

func load() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(URL, bytes.NewReader(sourceUnitSchema)); err != nil {
			compileErr = fmt.Errorf("failed to add source unit schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(URL)
	})
	return compiled, compileErr
}

// Validate checks a JSON document against the SourceUnit schema.
func Validate(data []byte) error {
	s, err := load()
	if err != nil {
		return fmt.Errorf("failed to compile source unit schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode source unit: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("source unit schema validation failed: %w", err)
	}
	return nil
}

// ValidateUnit serializes unit and validates the result.
func ValidateUnit(unit *extractor.SourceUnit) error {
	if unit == nil {
		return fmt.Errorf("source unit is nil")
	}
	raw, err := json.Marshal(unit)
	if err != nil {
		return fmt.Errorf("failed to marshal source unit for schema validation: %w", err)
	}
	return Validate(raw)
}
