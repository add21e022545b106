// Package schemas provides JSON Schema validation for model output and
// other structured payloads.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ProfileSchemaName identifies the embedded extracted-profile schema in errors.
const ProfileSchemaName = "extracted_profile.schema.json"

//go:embed extracted_profile.schema.json
var profileSchemaJSON []byte

// ProfileSchemaJSON returns the raw extracted-profile schema.
func ProfileSchemaJSON() []byte {
	out := make([]byte, len(profileSchemaJSON))
	copy(out, profileSchemaJSON)
	return out
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Fields lists the failing field paths.
func (ve *ValidationError) Fields() []string {
	fields := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

var (
	profileSchemaOnce sync.Once
	profileSchema     *gojsonschema.Schema
	profileSchemaErr  error
)

func compiledProfileSchema() (*gojsonschema.Schema, error) {
	profileSchemaOnce.Do(func() {
		profileSchema, profileSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(profileSchemaJSON))
	})
	return profileSchema, profileSchemaErr
}

// ValidateProfileJSON checks a model response against the extracted-profile
// schema. It returns a *ValidationError for schema violations and a
// *SchemaLoadError when the document is not parseable JSON.
func ValidateProfileJSON(data []byte) error {
	schema, err := compiledProfileSchema()
	if err != nil {
		return &SchemaLoadError{Path: ProfileSchemaName, Message: "invalid embedded schema", Cause: err}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &SchemaLoadError{Path: ProfileSchemaName, Message: "document could not be loaded", Cause: err}
	}
	return toValidationError(result)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
