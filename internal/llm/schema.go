package llm

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError is a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

// SchemaError lists every violation found in a response.
type SchemaError struct {
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "response does not match schema: " + strings.Join(parts, "; ")
}

// Schema is a compiled JSON Schema used to check model output.
type Schema struct {
	schema *gojsonschema.Schema
}

// MustSchema compiles a schema literal and panics if it is malformed.
func MustSchema(source string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("invalid JSON schema: %v", err))
	}
	return &Schema{schema: s}
}

// Validate checks document (JSON text) against the schema.
func (s *Schema) Validate(document string) error {
	result, err := s.schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("validating response: %w", err)
	}
	if result.Valid() {
		return nil
	}

	se := &SchemaError{}
	for _, re := range result.Errors() {
		se.Errors = append(se.Errors, FieldError{Field: re.Field(), Message: re.Description()})
	}
	return se
}
