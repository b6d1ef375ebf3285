package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConventionalCommit(t *testing.T) {
	t.Run("should parse type, scope and description", func(t *testing.T) {
		c, err := ParseConventionalCommit("feat(api): add token endpoint")
		require.NoError(t, err)
		assert.Equal(t, "feat", c.Type)
		assert.Equal(t, "api", c.Scope)
		assert.Equal(t, "add token endpoint", c.Description)
		assert.False(t, c.Breaking)
	})

	t.Run("should detect a breaking change marker", func(t *testing.T) {
		c, err := ParseConventionalCommit("refactor!: drop node 18")
		require.NoError(t, err)
		assert.True(t, c.Breaking)
		assert.Empty(t, c.Scope)
	})

	t.Run("should detect a breaking change footer and keep the body", func(t *testing.T) {
		msg := "fix(deps): bump eslint\n\nThe config format changed.\n\nBREAKING CHANGE: flat config is required\nRefs: #42\n"
		c, err := ParseConventionalCommit(msg)
		require.NoError(t, err)
		assert.True(t, c.Breaking)
		assert.Equal(t, "The config format changed.", c.Body)
		assert.Equal(t, "flat config is required", c.Footers["BREAKING CHANGE"])
		assert.Equal(t, "#42", c.Footers["Refs"])
	})

	t.Run("should only read footers from the last paragraph", func(t *testing.T) {
		c, err := ParseConventionalCommit("fix: handle nil\n\nNote: the old path panicked.\nWe now return early.\n\nRefs: #12")
		require.NoError(t, err)
		assert.Equal(t, "Note: the old path panicked.\nWe now return early.", c.Body)
		assert.Equal(t, map[string]string{"Refs": "#12"}, c.Footers)
	})

	t.Run("should keep a body without footers", func(t *testing.T) {
		c, err := ParseConventionalCommit("docs: explain setup\n\nFirst paragraph.\n\nSecond paragraph.")
		require.NoError(t, err)
		assert.Equal(t, "First paragraph.\n\nSecond paragraph.", c.Body)
		assert.Empty(t, c.Footers)
	})

	t.Run("should ignore git comment lines", func(t *testing.T) {
		c, err := ParseConventionalCommit("# Please enter the commit message\nchore: update lockfile\n# On branch main")
		require.NoError(t, err)
		assert.Equal(t, "chore", c.Type)
	})

	t.Run("should reject a non conventional header", func(t *testing.T) {
		_, err := ParseConventionalCommit("updated some stuff")
		assert.Error(t, err)
	})
}

func TestLintCommitMessage(t *testing.T) {
	tests := []struct {
		name       string
		msg        string
		opts       CommitLintOptions
		violations int
	}{
		{"valid commit", "feat(ui): add dark mode", CommitLintOptions{}, 0},
		{"unknown type", "feature: add dark mode", CommitLintOptions{}, 1},
		{"trailing period", "fix: handle nil pointer.", CommitLintOptions{}, 1},
		{"missing scope", "fix: handle nil pointer", CommitLintOptions{RequireScope: true}, 1},
		{"header too long", "fix: this header is way too long for the configured limit", CommitLintOptions{MaxHeaderLength: 20}, 1},
		{"not conventional", "wip", CommitLintOptions{}, 1},
		{"empty message", "# only a comment", CommitLintOptions{}, 1},
		{"merge commit is exempt", "Merge branch 'main' into feat/x", CommitLintOptions{}, 0},
		{"fixup is exempt", "fixup! feat: add x", CommitLintOptions{}, 0},
		{"custom types", "deps: bump react", CommitLintOptions{Types: []string{"deps"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, LintCommitMessage(tt.msg, tt.opts), tt.violations)
		})
	}
}

func TestLintBranchName(t *testing.T) {
	assert.Empty(t, LintBranchName("main", nil))
	assert.Empty(t, LintBranchName("feat/add-login", nil))
	assert.Empty(t, LintBranchName("release/1.2.0", nil))
	assert.Len(t, LintBranchName("add-login", nil), 1)
	assert.Len(t, LintBranchName("feat/", nil), 1)
	assert.Len(t, LintBranchName("Feat/Add Login", nil), 2)
	assert.Empty(t, LintBranchName("team-a/thing", []string{"team-a/"}))
}
