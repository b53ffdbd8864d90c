package enrich_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/pkg/batch/component/enrich"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

const testSchema = `{
  "type": "object",
  "required": ["name", "origin"],
  "properties": {
    "name": {"type": "string"},
    "origin": {"type": "string"},
    "songs": {"type": "array"}
  }
}`

func TestRequiredFieldsValidator(t *testing.T) {
	v := enrich.NewRequiredFieldsValidator([]string{"name", "origin", "meaning"})
	require.NoError(t, v.Validate(record("ada", map[string]interface{}{"name": "Ada", "origin": "Germanic", "meaning": "noble"})))

	err := v.Validate(record("ada", map[string]interface{}{"name": "Ada", "origin": "  "}))
	require.Error(t, err)
	assert.True(t, exception.IsPermanentEnrichmentError(err))
	assert.Contains(t, err.Error(), "origin, meaning")
}

func TestSchemaValidator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o644))
	v, err := enrich.NewSchemaValidator(path)
	require.NoError(t, err)

	require.NoError(t, v.Validate(record("ada", map[string]interface{}{"name": "Ada", "origin": "Germanic"})))

	err = v.Validate(record("ada", map[string]interface{}{"name": "Ada", "songs": "not a list"}))
	require.Error(t, err)
	assert.True(t, exception.IsPermanentEnrichmentError(err))
}

func TestSchemaValidatorRejectsBadSchema(t *testing.T) {
	_, err := enrich.NewSchemaValidatorFromBytes([]byte(`{"type": 12}`))
	assert.Error(t, err)
	_, err = enrich.NewSchemaValidator(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidatorsCollectAllFailures(t *testing.T) {
	schema, err := enrich.NewSchemaValidatorFromBytes([]byte(testSchema))
	require.NoError(t, err)
	vs := enrich.Validators{enrich.NewRequiredFieldsValidator([]string{"meaning"}), schema}

	err = vs.Validate(record("ada", map[string]interface{}{"name": "Ada"}))
	require.Error(t, err)
	assert.True(t, exception.IsPermanentEnrichmentError(err))
	assert.Contains(t, exception.ExtractErrorMessage(err), "failed validation")
}
