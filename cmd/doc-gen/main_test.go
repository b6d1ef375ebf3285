package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcessMarkdown(t *testing.T) {
	in := "## devkit deps audit\n\nAudit\n\n```\n  devkit deps audit\n```\n\n### SEE ALSO\n\n* [devkit deps](devkit_deps.md)\n"
	out := postProcessMarkdown(in)

	assert.Contains(t, out, "## deps audit\n")
	assert.Contains(t, out, "```shell\n  devkit deps audit")
	assert.NotContains(t, out, "SEE ALSO")
}

func TestGenerateDocs(t *testing.T) {
	root := &cobra.Command{Use: "devkit", DisableAutoGenTag: true}
	group := &cobra.Command{Use: "deps", Short: "Dependencies"}
	group.AddCommand(
		&cobra.Command{Use: "audit", Short: "Audit", Run: func(cmd *cobra.Command, args []string) {}},
		&cobra.Command{Use: "secret", Hidden: true, Run: func(cmd *cobra.Command, args []string) {}},
	)
	root.AddCommand(group)

	dir := t.TempDir()
	require.NoError(t, generateDocs(root, dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"devkit.md", "devkit_deps.md", "devkit_deps_audit.md"}, names)

	content, err := os.ReadFile(filepath.Join(dir, "devkit_deps_audit.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "## deps audit")
}
