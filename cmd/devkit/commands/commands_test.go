package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	RootCmd.SetArgs(args)
	return RootCmd.Execute()
}

func TestFlagValue(t *testing.T) {
	t.Run("joins lists with commas", func(t *testing.T) {
		assert.Equal(t, "MIT,ISC", flagValue([]any{"MIT", "ISC"}))
	})
	t.Run("formats scalars", func(t *testing.T) {
		assert.Equal(t, "high", flagValue("high"))
		assert.Equal(t, "42", flagValue(42))
		assert.Equal(t, "true", flagValue(true))
	})
}

func TestParseChecks(t *testing.T) {
	t.Run("reads name=bool pairs", func(t *testing.T) {
		checks, err := parseChecks([]string{"ci=true", "e2e=false"})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"ci": true, "e2e": false}, checks)
	})
	t.Run("rejects pairs without a value", func(t *testing.T) {
		_, err := parseChecks([]string{"ci"})
		assert.Error(t, err)
	})
	t.Run("rejects values that are no bool", func(t *testing.T) {
		_, err := parseChecks([]string{"ci=maybe"})
		assert.Error(t, err)
	})
}

func TestReadFreezeWindows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freeze.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`- start: 2026-12-20T00:00:00Z
  end: 2027-01-02T00:00:00Z
  reason: holidays
`), 0o600))

	windows, err := readFreezeWindows(path)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "holidays", windows[0].Reason)
	assert.Equal(t, 2027, windows[0].End.Year())

	windows, err = readFreezeWindows("")
	assert.NoError(t, err)
	assert.Nil(t, windows)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "done", lastLine("building\ndone"))
	assert.Equal(t, "single", lastLine("single"))
	assert.Equal(t, "", lastLine(""))
}

func TestCommitLintCommand(t *testing.T) {
	t.Run("accepts a conventional commit", func(t *testing.T) {
		err := execute(t, "git", "commit-lint", "--message", "feat(api): add health endpoint")
		assert.NoError(t, err)
	})

	t.Run("fails for a message without type", func(t *testing.T) {
		err := execute(t, "git", "commit-lint", "--message", "added stuff")
		assert.Error(t, err)
	})

	t.Run("reads the message from a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "COMMIT_EDITMSG")
		require.NoError(t, os.WriteFile(path, []byte("fix: handle empty lock file\n\n# comment from git\n"), 0o600))
		err := execute(t, "git", "commit-lint", "--file", path)
		assert.NoError(t, err)
	})
}

func TestDataValidateCommand(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "schema.json")
	doc := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(schema, []byte(`{"type": "object", "required": ["name"]}`), 0o600))

	require.NoError(t, os.WriteFile(doc, []byte(`{"name": "devkit"}`), 0o600))
	assert.NoError(t, execute(t, "data", "validate", schema, doc))

	require.NoError(t, os.WriteFile(doc, []byte(`{}`), 0o600))
	assert.Error(t, execute(t, "data", "validate", schema, doc))
}
