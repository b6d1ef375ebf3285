// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// doc-gen writes one markdown page per devkit command.
//
//	go run ./cmd/doc-gen [outDir]
package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/l3montree-dev/devkit/cmd/devkit/commands"
)

var (
	headlineRe  = regexp.MustCompile(`(?m)^## devkit (.+)$`)
	seeAlsoRe   = regexp.MustCompile(`(?s)\n### SEE ALSO\n.*$`)
	codeBlockRe = regexp.MustCompile("(?m)^```\n([ a-z])")
)

// postProcessMarkdown drops the "devkit " prefix of headlines and the SEE ALSO section and marks
// code blocks as shell.
func postProcessMarkdown(text string) string {
	text = headlineRe.ReplaceAllString(text, "## $1")
	text = seeAlsoRe.ReplaceAllString(text, "")
	return codeBlockRe.ReplaceAllString(text, "```shell\n$1")
}

func pageName(cmd *cobra.Command) string {
	return strings.ReplaceAll(cmd.CommandPath(), " ", "_") + ".md"
}

func linkHandler(name string) string {
	return name
}

func writePage(cmd *cobra.Command, outDir string) error {
	var buf bytes.Buffer
	if err := doc.GenMarkdownCustom(cmd, &buf, linkHandler); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, pageName(cmd)), []byte(postProcessMarkdown(buf.String())), 0o644) // nolint:gosec
}

// generateDocs walks the command tree depth first and skips hidden commands.
func generateDocs(cmd *cobra.Command, outDir string) error {
	if err := writePage(cmd, outDir); err != nil {
		return err
	}
	for _, sub := range cmd.Commands() {
		if sub.Hidden || !sub.IsAvailableCommand() {
			continue
		}
		if err := generateDocs(sub, outDir); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	outDir := "docs/cli"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		slog.Error("could not create output directory", "err", err, "dir", outDir)
		os.Exit(1)
	}

	commands.RootCmd.DisableAutoGenTag = true
	if err := generateDocs(commands.RootCmd, outDir); err != nil {
		slog.Error("could not generate docs", "err", err)
		os.Exit(1)
	}
	slog.Info("generated docs", "dir", outDir)
}
