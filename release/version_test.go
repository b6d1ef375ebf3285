package release

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/devkit/gitutil"
	"github.com/l3montree-dev/devkit/normalize"
)

func TestNextVersion(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		commits  []gitutil.ConventionalCommit
		expected string
		bump     normalize.Bump
	}{
		{"fix is a patch", "1.2.3", []gitutil.ConventionalCommit{{Type: "fix"}}, "1.2.4", normalize.BumpPatch},
		{"perf is a patch", "v1.2.3", []gitutil.ConventionalCommit{{Type: "perf"}}, "1.2.4", normalize.BumpPatch},
		{"feat wins over fix", "1.2.3", []gitutil.ConventionalCommit{{Type: "fix"}, {Type: "feat"}}, "1.3.0", normalize.BumpMinor},
		{"breaking is a major", "1.2.3", []gitutil.ConventionalCommit{{Type: "feat"}, {Type: "refactor", Breaking: true}}, "2.0.0", normalize.BumpMajor},
		{"breaking before 1.0 is a minor", "0.4.1", []gitutil.ConventionalCommit{{Type: "feat", Breaking: true}}, "0.5.0", normalize.BumpMinor},
		{"chores are not released", "1.2.3", []gitutil.ConventionalCommit{{Type: "chore"}, {Type: "docs"}}, "1.2.3", normalize.BumpNone},
		{"no commits", "v1.2.3", nil, "1.2.3", normalize.BumpNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, bump, err := NextVersion(tt.current, tt.commits)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, next)
			assert.Equal(t, tt.bump, bump)
		})
	}

	_, _, err := NextVersion("not-a-version", []gitutil.ConventionalCommit{{Type: "feat"}})
	assert.Error(t, err)
}

func TestRenderChangelog(t *testing.T) {
	commits := []gitutil.ConventionalCommit{
		{Type: "feat", Scope: "ui", Description: "add dark mode", Hash: "1234567890abcdef"},
		{Type: "fix", Description: "handle empty config", Hash: "abcdef1234567890"},
		{Type: "feat", Scope: "api", Description: "drop v1", Breaking: true, Hash: "fedcba0987654321"},
		{Type: "docs", Description: "explain setup"},
	}

	out := RenderChangelog("v2.0.0", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), commits)
	expected := `## 2.0.0 (2026-03-01)

### Breaking Changes

- **api:** drop v1 (fedcba0)

### Features

- **ui:** add dark mode (1234567)

### Bug Fixes

- handle empty config (abcdef1)

### Other

- Docs: explain setup
`
	assert.Equal(t, expected, out)

	empty := RenderChangelog("1.0.1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, "## 1.0.1 (2026-03-01)\n\nNo notable changes.\n", empty)
}

func TestPrependChangelog(t *testing.T) {
	t.Run("should create the file with a heading", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "CHANGELOG.md")
		require.NoError(t, PrependChangelog(path, "## 1.0.0 (2026-01-01)\n"))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "# Changelog\n\n## 1.0.0 (2026-01-01)\n", string(content))
	})

	t.Run("should keep the heading on top", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "CHANGELOG.md")
		require.NoError(t, os.WriteFile(path, []byte("# Changelog\n\n## 1.0.0 (2026-01-01)\n"), 0o600))
		require.NoError(t, PrependChangelog(path, "## 1.1.0 (2026-02-01)\n"))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "# Changelog\n\n## 1.1.0 (2026-02-01)\n\n## 1.0.0 (2026-01-01)\n", string(content))
	})

	t.Run("should prepend to changelogs without heading", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "CHANGELOG.md")
		require.NoError(t, os.WriteFile(path, []byte("## 1.0.0\n"), 0o600))
		require.NoError(t, PrependChangelog(path, "## 1.1.0\n"))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "## 1.1.0\n\n## 1.0.0\n", string(content))
	})
}

func TestSetPackageVersion(t *testing.T) {
	dir := t.TempDir()
	pkg := "{\n  \"name\": \"app\",\n  \"version\": \"1.0.0\",\n  \"dependencies\": {\"dep\": \"^2.0.0\"}\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkg), 0o600))

	require.NoError(t, SetPackageVersion(dir, "v1.1.0"))
	content, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"app\",\n  \"version\": \"1.1.0\",\n  \"dependencies\": {\"dep\": \"^2.0.0\"}\n}\n", string(content))
}

func TestSetPackageVersionSkipsNestedVersion(t *testing.T) {
	dir := t.TempDir()
	pkg := `{
  "name": "app",
  "config": {"version": "legacy", "label": "{\"x\"}"},
  "version": "1.0.0"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkg), 0o600))

	require.NoError(t, SetPackageVersion(dir, "2.0.0"))
	content, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Equal(t, `{
  "name": "app",
  "config": {"version": "legacy", "label": "{\"x\"}"},
  "version": "2.0.0"
}
`, string(content))
}
