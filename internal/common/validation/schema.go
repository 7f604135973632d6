package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema used to check documents received from
// the backend before they are trusted.
type Schema struct {
	schema *gojsonschema.Schema
}

// CompileSchema compiles a JSON schema given as a Go value (usually a
// map[string]interface{}) or raw JSON string.
func CompileSchema(schema interface{}) (*Schema, error) {
	var loader gojsonschema.JSONLoader
	if raw, ok := schema.(string); ok {
		loader = gojsonschema.NewStringLoader(raw)
	} else {
		loader = gojsonschema.NewGoLoader(schema)
	}

	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: compiled}, nil
}

// Validate checks document against the schema. Errors are sorted by field
// so results are stable.
func (s *Schema) Validate(document interface{}) (*ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Field == errs[j].Field {
			return errs[i].Code < errs[j].Code
		}
		return errs[i].Field < errs[j].Field
	})

	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errs,
	}, nil
}
