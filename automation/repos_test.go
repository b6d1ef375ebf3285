package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdir(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(path, 0o755))
}

func TestDiscoverRepos(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "api", ".git"))
	mkdir(t, filepath.Join(root, "api", "vendor", "lib", ".git"))
	mkdir(t, filepath.Join(root, "team", "web", ".git"))
	mkdir(t, filepath.Join(root, "team", "deep", "nested", ".git"))
	mkdir(t, filepath.Join(root, "node_modules", "pkg", ".git"))
	mkdir(t, filepath.Join(root, "notes"))
	// worktrees and submodules use a .git file
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", ".git"), []byte("gitdir: ../.git/worktrees/notes"), 0o600))

	t.Run("should find repositories up to the max depth", func(t *testing.T) {
		repos, err := DiscoverRepos(root, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "api"),
			filepath.Join(root, "notes"),
			filepath.Join(root, "team", "web"),
		}, repos)
	})

	t.Run("should go deeper with a higher max depth", func(t *testing.T) {
		repos, err := DiscoverRepos(root, 3)
		require.NoError(t, err)
		assert.Contains(t, repos, filepath.Join(root, "team", "deep", "nested"))
	})

	t.Run("should return the root if it is a repository", func(t *testing.T) {
		repos, err := DiscoverRepos(filepath.Join(root, "api"), 3)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "api")}, repos)
	})
}

func TestRepoName(t *testing.T) {
	assert.Equal(t, "devguard", RepoName("https://github.com/l3montree-dev/devguard.git"))
	assert.Equal(t, "devguard", RepoName("https://github.com/l3montree-dev/devguard/"))
	assert.Equal(t, "devkit", RepoName("git@github.com:l3montree-dev/devkit.git"))
	assert.Equal(t, "repo", RepoName("repo"))
}

func TestCloneRepos(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, filepath.Join(dir, "existing"))

	results, err := CloneRepos(context.Background(), []string{
		"https://example.com/org/existing.git",
		filepath.Join(t.TempDir(), "missing.git"),
	}, dir, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Skipped)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, filepath.Join(dir, "existing"), results[0].Path)

	assert.False(t, results[1].Skipped)
	assert.Error(t, results[1].Err)
	assert.NoDirExists(t, filepath.Join(dir, "missing"))
}
