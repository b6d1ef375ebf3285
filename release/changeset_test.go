package release

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/devkit/normalize"
)

func TestInitChangesets(t *testing.T) {
	dir := t.TempDir()

	written, err := InitChangesets(dir, DefaultChangesetConfig())
	require.NoError(t, err)
	assert.True(t, written)

	cfg, err := ReadChangesetConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, "restricted", cfg.Access)
	assert.Equal(t, "@changesets/cli/changelog", cfg.Changelog)

	written, err = InitChangesets(dir, DefaultChangesetConfig())
	require.NoError(t, err)
	assert.False(t, written)

	invalid := DefaultChangesetConfig()
	invalid.Access = "private"
	_, err = InitChangesets(t.TempDir(), invalid)
	assert.Error(t, err)
}

func TestWriteAndReadChangesets(t *testing.T) {
	dir := t.TempDir()
	_, err := InitChangesets(dir, DefaultChangesetConfig())
	require.NoError(t, err)

	cs, err := WriteChangeset(dir, Changeset{
		Releases: map[string]normalize.Bump{"@acme/ui": normalize.BumpMinor, "api": normalize.BumpPatch},
		Summary:  "Add dark mode to the dashboard\n\nThe toggle lives in the settings.",
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^add-dark-mode-to-the-dashboard-[0-9a-f]{8}$`), cs.ID)

	_, err = WriteChangeset(dir, Changeset{ID: "aaa-first", Releases: map[string]normalize.Bump{"api": normalize.BumpMajor}, Summary: "Drop v1 endpoints"})
	require.NoError(t, err)

	changesets, err := ReadChangesets(dir)
	require.NoError(t, err)
	require.Len(t, changesets, 2)
	assert.Equal(t, "aaa-first", changesets[0].ID)
	assert.Equal(t, normalize.BumpMinor, changesets[1].Releases["@acme/ui"])
	assert.Equal(t, "Add dark mode to the dashboard\n\nThe toggle lives in the settings.", changesets[1].Summary)

	assert.Equal(t, map[string]normalize.Bump{"api": normalize.BumpMajor, "@acme/ui": normalize.BumpMinor}, PendingBumps(changesets))
}

func TestWriteChangesetValidation(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteChangeset(dir, Changeset{Summary: "nothing"})
	assert.Error(t, err)

	_, err = WriteChangeset(dir, Changeset{Releases: map[string]normalize.Bump{"a": "huge"}, Summary: "x"})
	assert.Error(t, err)

	_, err = WriteChangeset(dir, Changeset{Releases: map[string]normalize.Bump{"a": normalize.BumpPatch}})
	assert.Error(t, err)
}

func TestParseChangeset(t *testing.T) {
	cs, err := ParseChangeset("id", "---\n\"pkg\": patch\n---\n\nFix crash\n")
	require.NoError(t, err)
	assert.Equal(t, Changeset{ID: "id", Releases: map[string]normalize.Bump{"pkg": normalize.BumpPatch}, Summary: "Fix crash"}, cs)

	cs, err = ParseChangeset("empty", "---\n---\n\nDocs only\n")
	require.NoError(t, err)
	assert.Empty(t, cs.Releases)

	_, err = ParseChangeset("broken", "no frontmatter")
	assert.Error(t, err)
}

func TestReadChangesetsWithoutDirectory(t *testing.T) {
	changesets, err := ReadChangesets(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, changesets)
}

func TestParseReleases(t *testing.T) {
	releases, err := ParseReleases([]string{"@acme/ui=minor", "api = patch"})
	require.NoError(t, err)
	assert.Equal(t, map[string]normalize.Bump{"@acme/ui": normalize.BumpMinor, "api": normalize.BumpPatch}, releases)

	_, err = ParseReleases([]string{"api"})
	assert.Error(t, err)
}

func TestChangesetReadmeIsSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".changeset"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".changeset", "README.md"), []byte("# Changesets"), 0o600))

	changesets, err := ReadChangesets(dir)
	require.NoError(t, err)
	assert.Empty(t, changesets)
}
