package enrich

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// Validator checks a record before it is accepted.
type Validator interface {
	Validate(record *model.EnrichedRecord) error
}

// RequiredFieldsValidator requires each field to be present and non-empty.
type RequiredFieldsValidator struct {
	fields []string
}

// NewRequiredFieldsValidator creates a RequiredFieldsValidator.
func NewRequiredFieldsValidator(fields []string) *RequiredFieldsValidator {
	return &RequiredFieldsValidator{fields: fields}
}

// Validate implements Validator.
func (v *RequiredFieldsValidator) Validate(record *model.EnrichedRecord) error {
	var missing []string
	for _, f := range v.fields {
		if isEmptyValue(record.Fields[f]) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return exception.NewPermanentEnrichmentError(fmt.Sprintf("record '%s' is missing required fields: %s", record.ID, strings.Join(missing, ", ")), nil)
	}
	return nil
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

// SchemaValidator validates records against a JSON schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

// NewSchemaValidator compiles the JSON schema at path.
func NewSchemaValidator(path string) (*SchemaValidator, error) {
	schemaBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema '%s': %w", path, err)
	}
	return NewSchemaValidatorFromBytes(schemaBytes)
}

// NewSchemaValidatorFromBytes compiles a JSON schema document.
func NewSchemaValidatorFromBytes(schemaBytes []byte) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate implements Validator.
func (v *SchemaValidator) Validate(record *model.EnrichedRecord) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(record.Fields))
	if err != nil {
		return exception.NewPermanentEnrichmentError(fmt.Sprintf("record '%s' could not be validated", record.ID), err)
	}
	if result.Valid() {
		return nil
	}
	var merr *multierror.Error
	for _, re := range result.Errors() {
		merr = multierror.Append(merr, fmt.Errorf("%s", re.String()))
	}
	return exception.NewPermanentEnrichmentError(fmt.Sprintf("record '%s' does not match the schema", record.ID), merr.ErrorOrNil())
}

// Validators runs every validator and reports all failures together.
type Validators []Validator

// Validate implements Validator.
func (vs Validators) Validate(record *model.EnrichedRecord) error {
	var merr *multierror.Error
	for _, v := range vs {
		if err := v.Validate(record); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr == nil {
		return nil
	}
	if len(merr.Errors) == 1 {
		return merr.Errors[0]
	}
	return exception.NewPermanentEnrichmentError(fmt.Sprintf("record '%s' failed validation", record.ID), merr)
}
