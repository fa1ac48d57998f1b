package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "faults.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the raw JSON Schema for fault files.
func Schema() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validateSchema checks a decoded document against the fault file schema.
// doc may come from either yaml or json; it is normalized through JSON first.
func validateSchema(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("%w: schema compilation error: %w", ErrSchema, err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}

	if err := s.Validate(normalized); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", ErrSchema, strings.Join(schemaMessages(verr, nil), "; "))
		}
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}

// schemaMessages flattens the leaf causes of a validation error.
func schemaMessages(err *jsonschema.ValidationError, out []string) []string {
	if len(err.Causes) == 0 {
		field := fieldFromPointer(err.InstanceLocation)
		if field == "" {
			return append(out, err.Message)
		}
		return append(out, field+": "+err.Message)
	}
	for _, cause := range err.Causes {
		out = schemaMessages(cause, out)
	}
	return out
}

// fieldFromPointer turns "/faults/0/code" into "faults[0].code".
func fieldFromPointer(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for i, part := range strings.Split(ptr, "/") {
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
