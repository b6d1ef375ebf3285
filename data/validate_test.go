package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string"},
    "age": {"type": "integer", "minimum": 0}
  }
}`

func TestValidateJSONDocument(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "person.schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(personSchema), 0o600))

	t.Run("should accept a valid document", func(t *testing.T) {
		docPath := filepath.Join(dir, "valid.json")
		require.NoError(t, os.WriteFile(docPath, []byte(`{"name": "jane", "age": 30}`), 0o600))

		violations, err := ValidateJSONDocument(schemaPath, docPath)
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("should report every violation", func(t *testing.T) {
		docPath := filepath.Join(dir, "invalid.json")
		require.NoError(t, os.WriteFile(docPath, []byte(`{"age": -1}`), 0o600))

		violations, err := ValidateJSONDocument(schemaPath, docPath)
		require.NoError(t, err)
		require.Len(t, violations, 2)
		assert.Contains(t, violations[0], "/: ")
		assert.Contains(t, violations[0], "name")
		assert.Contains(t, violations[1], "/age: ")
	})

	t.Run("should fail on a broken document", func(t *testing.T) {
		docPath := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(docPath, []byte(`{"age":`), 0o600))

		_, err := ValidateJSONDocument(schemaPath, docPath)
		assert.Error(t, err)
	})
}
