package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "index.ts"), "")
	writeFile(t, filepath.Join(root, "src", "util.TS"), "")
	writeFile(t, filepath.Join(root, "README.md"), "")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.ts"), "")
	writeFile(t, filepath.Join(root, ".git", "config"), "")

	t.Run("should skip ignored directories and match extensions case-insensitively", func(t *testing.T) {
		files, err := FindFilesByExt(root, "ts")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "src", "index.ts"),
			filepath.Join(root, "src", "util.TS"),
		}, files)
	})

	t.Run("should match every file if no extension is provided", func(t *testing.T) {
		files, err := FindFilesByExt(root)
		require.NoError(t, err)
		assert.Len(t, files, 3)
	})
}

func TestReadWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	type cfg struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}

	require.NoError(t, WriteJSON(path, cfg{Name: "devkit", Items: []string{"a"}}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"devkit\",\n  \"items\": [\n    \"a\"\n  ]\n}\n", string(b))

	read, err := ReadJSON[cfg](path)
	require.NoError(t, err)
	assert.Equal(t, "devkit", read.Name)

	_, err = ReadJSON[cfg](filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestReadCsvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	writeFile(t, path, "id,email\n1,a@example.com\n2,b@example.com\n")

	rows, err := ReadCsvFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b@example.com", rows[1]["email"])
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, ".env.example")
	require.NoError(t, os.WriteFile(src, []byte("A=1\n"), 0o600))

	require.NoError(t, CopyFile(src, filepath.Join(dir, ".env")))

	b, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "A=1\n", string(b))
	assert.True(t, FileExists(filepath.Join(dir, ".env")))
}
