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

package ai

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/data"
	"github.com/l3montree-dev/devkit/utils"
)

// EstimateTokens approximates the token count with four characters per token, rounded up.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

type ContextOptions struct {
	Root string
	// Extensions limits the files to pack. Empty packs every text file.
	Extensions []string
	MaxTokens  int
	ExcludePII bool
}

type ContextFile struct {
	Path    string
	Content string
	Tokens  int
}

type SkippedFile struct {
	Path   string
	Reason string
}

type ContextBundle struct {
	Files     []ContextFile
	Tokens    int
	Truncated bool
	Skipped   []SkippedFile
}

func isEnvFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".env")
}

// BuildContext packs the text files below Root into a bundle until MaxTokens is reached. Env
// files and binary files are always skipped.
func BuildContext(opts ContextOptions) (ContextBundle, error) {
	bundle := ContextBundle{Files: []ContextFile{}, Skipped: []SkippedFile{}}
	if opts.Root == "" {
		opts.Root = "."
	}

	files, err := utils.FindFilesByExt(opts.Root, opts.Extensions...)
	if err != nil {
		return bundle, errors.Wrapf(err, "could not list files in %s", opts.Root)
	}

	for _, file := range files {
		rel, err := filepath.Rel(opts.Root, file)
		if err != nil {
			rel = file
		}
		if isEnvFile(rel) {
			bundle.Skipped = append(bundle.Skipped, SkippedFile{Path: rel, Reason: "env file"})
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return bundle, errors.Wrapf(err, "could not read %s", file)
		}
		if data.IsBinary(content) {
			bundle.Skipped = append(bundle.Skipped, SkippedFile{Path: rel, Reason: "binary"})
			continue
		}
		if opts.ExcludePII {
			if matches := data.ScanText(string(content)); len(matches) > 0 {
				bundle.Skipped = append(bundle.Skipped, SkippedFile{Path: rel, Reason: fmt.Sprintf("contains pii (%s)", matches[0].Type)})
				continue
			}
		}

		f := ContextFile{Path: filepath.ToSlash(rel), Content: string(content)}
		f.Tokens = EstimateTokens(f.render())
		if opts.MaxTokens > 0 && bundle.Tokens+f.Tokens > opts.MaxTokens {
			bundle.Truncated = true
			break
		}
		bundle.Files = append(bundle.Files, f)
		bundle.Tokens += f.Tokens
	}
	return bundle, nil
}

func (f ContextFile) render() string {
	lang := strings.TrimPrefix(filepath.Ext(f.Path), ".")
	content := f.Content
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return fmt.Sprintf("### %s\n\n```%s\n%s```\n", f.Path, lang, content)
}

// Render concatenates the files as markdown sections with fenced contents.
func (b ContextBundle) Render() string {
	sections := make([]string, 0, len(b.Files))
	for _, f := range b.Files {
		sections = append(sections, f.render())
	}
	return strings.Join(sections, "\n")
}
