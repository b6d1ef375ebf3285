package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferSchema(t *testing.T) {
	schema := InferSchema("users", []map[string]any{
		{"id": 1.0, "name": "a", "active": true, "tags": []any{}, "meta": nil},
		{"id": 2.0, "name": nil, "active": "yes", "meta": map[string]any{"a": 1.0}, "deleted": nil},
	})

	assert.Equal(t, "users", schema.Name)
	assert.Equal(t, map[string]string{
		"id":      TypeNumber,
		"name":    TypeString,
		"active":  TypeMixed,
		"tags":    TypeArray,
		"meta":    TypeObject,
		"deleted": TypeNull,
	}, schema.Columns)
}

func TestCompareSchemas(t *testing.T) {
	baseline := Schema{Columns: map[string]string{"id": TypeNumber, "name": TypeString, "email": TypeString, "age": TypeNumber}}
	current := Schema{Columns: map[string]string{"id": TypeString, "name": TypeString, "age": TypeNumber, "phone": TypeString}}

	t.Run("should report added, removed and changed columns", func(t *testing.T) {
		drift := CompareSchemas(baseline, current, 50)
		assert.Equal(t, []string{"phone"}, drift.Added)
		assert.Equal(t, []string{"email"}, drift.Removed)
		assert.Equal(t, []ColumnChange{{Column: "id", From: TypeNumber, To: TypeString}}, drift.Changed)
		assert.InDelta(t, 75.0, drift.DriftPercent, 0.001)
		assert.True(t, drift.Exceeded)
	})

	t.Run("should not exceed a higher threshold", func(t *testing.T) {
		assert.False(t, CompareSchemas(baseline, current, 75).Exceeded)
	})

	t.Run("should report no drift for equal schemas", func(t *testing.T) {
		drift := CompareSchemas(baseline, baseline, 0)
		assert.Zero(t, drift.DriftPercent)
		assert.False(t, drift.Exceeded)
		assert.Empty(t, drift.Added)
	})

	t.Run("should report 100 percent against an empty baseline", func(t *testing.T) {
		drift := CompareSchemas(Schema{}, current, 10)
		assert.Equal(t, 100.0, drift.DriftPercent)
		assert.True(t, drift.Exceeded)
		assert.Zero(t, CompareSchemas(Schema{}, Schema{}, 0).DriftPercent)
	})
}

func TestSchemaFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	schema := Schema{Name: "orders", Columns: map[string]string{"id": TypeNumber}}

	require.NoError(t, SaveSchema(path, schema))
	loaded, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, schema, loaded)
	assert.Equal(t, []string{"id"}, loaded.ColumnNames())
}

func TestLoadRecords(t *testing.T) {
	dir := t.TempDir()

	t.Run("should read a json array", func(t *testing.T) {
		path := filepath.Join(dir, "records.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id": 1, "name": "a"}]`), 0o600))
		records, err := LoadRecords(path)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"id": 1.0, "name": "a"}}, records)
	})

	t.Run("should read newline delimited json", func(t *testing.T) {
		path := filepath.Join(dir, "records.ndjson")
		require.NoError(t, os.WriteFile(path, []byte("{\"id\": 1}\n\n{\"id\": 2}\n"), 0o600))
		records, err := LoadRecords(path)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("should read csv values as strings", func(t *testing.T) {
		path := filepath.Join(dir, "records.csv")
		require.NoError(t, os.WriteFile(path, []byte("id,name\n1,a\n"), 0o600))
		records, err := LoadRecords(path)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"id": TypeString, "name": TypeString}, InferSchema("csv", records).Columns)
	})
}
