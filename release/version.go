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

package release

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/l3montree-dev/devkit/gitutil"
	"github.com/l3montree-dev/devkit/normalize"
)

// NextVersion derives the bump from conventional commits. Breaking changes only bump the minor
// version while the major version is 0. Without feat, fix or perf commits nothing is released.
func NextVersion(current string, commits []gitutil.ConventionalCommit) (string, normalize.Bump, error) {
	bump := normalize.BumpNone
	for _, c := range commits {
		var b normalize.Bump
		switch {
		case c.Breaking:
			b = normalize.BumpMajor
		case c.Type == "feat":
			b = normalize.BumpMinor
		case c.Type == "fix" || c.Type == "perf":
			b = normalize.BumpPatch
		}
		if b.Rank() > bump.Rank() {
			bump = b
		}
	}

	if bump == normalize.BumpNone {
		return strings.TrimPrefix(current, "v"), bump, nil
	}
	if bump == normalize.BumpMajor && strings.HasPrefix(strings.TrimPrefix(current, "v"), "0.") {
		bump = normalize.BumpMinor
	}

	next, err := normalize.BumpVersion(current, string(bump))
	if err != nil {
		return "", bump, err
	}
	return next, bump, nil
}

var sectionOrder = []string{"Breaking Changes", "Features", "Bug Fixes", "Performance", "Other"}

var titleCase = cases.Title(language.English)

func changelogSection(c gitutil.ConventionalCommit) string {
	switch {
	case c.Breaking:
		return "Breaking Changes"
	case c.Type == "feat":
		return "Features"
	case c.Type == "fix":
		return "Bug Fixes"
	case c.Type == "perf":
		return "Performance"
	}
	return "Other"
}

func changelogEntry(section string, c gitutil.ConventionalCommit) string {
	var sb strings.Builder
	sb.WriteString("- ")
	if section == "Other" {
		sb.WriteString(titleCase.String(c.Type) + ": ")
	}
	if c.Scope != "" {
		sb.WriteString("**" + c.Scope + ":** ")
	}
	sb.WriteString(c.Description)
	if c.Hash != "" {
		fmt.Fprintf(&sb, " (%s)", gitutil.Commit{Hash: c.Hash}.ShortHash())
	}
	return sb.String()
}

// RenderChangelog renders the markdown section of one release. Commits keep their order inside a
// section and empty sections are left out.
func RenderChangelog(version string, date time.Time, commits []gitutil.ConventionalCommit) string {
	entries := map[string][]string{}
	for _, c := range commits {
		section := changelogSection(c)
		entries[section] = append(entries[section], changelogEntry(section, c))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (%s)\n", strings.TrimPrefix(version, "v"), date.Format(time.DateOnly))
	if len(commits) == 0 {
		sb.WriteString("\nNo notable changes.\n")
		return sb.String()
	}
	for _, section := range sectionOrder {
		if len(entries[section]) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n### %s\n\n", section)
		for _, e := range entries[section] {
			sb.WriteString(e + "\n")
		}
	}
	return sb.String()
}

const changelogHeading = "# Changelog"

// PrependChangelog puts section on top of the changelog, below an existing "# Changelog" heading.
func PrependChangelog(path string, section string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "could not read changelog")
	}
	section = strings.TrimRight(section, "\n") + "\n"

	content := string(existing)
	var out string
	switch {
	case strings.TrimSpace(content) == "":
		out = changelogHeading + "\n\n" + section
	case strings.HasPrefix(content, changelogHeading+"\n") || content == changelogHeading:
		rest := strings.TrimLeft(strings.TrimPrefix(content, changelogHeading), "\n")
		out = changelogHeading + "\n\n" + section
		if rest != "" {
			out += "\n" + rest
		}
	default:
		out = section + "\n" + content
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "could not create changelog directory")
	}
	return errors.Wrap(os.WriteFile(path, []byte(out), 0o644), "could not write changelog") // nolint:gosec
}

// jsonDepth returns how many objects or arrays are open at offset, ignoring brackets inside
// strings. A key of the top-level object sits at depth 1.
func jsonDepth(content []byte, offset int) int {
	depth := 0
	inString := false
	for i := 0; i < offset; i++ {
		c := content[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
	}
	return depth
}

var packageVersionRegex = regexp.MustCompile(`("version"\s*:\s*")([^"]*)(")`)

// SetPackageVersion replaces the version in package.json without touching the rest of the file.
func SetPackageVersion(dir string, version string) error {
	path := filepath.Join(dir, "package.json")
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "could not read package.json")
	}
	var loc []int
	for _, m := range packageVersionRegex.FindAllSubmatchIndex(content, -1) {
		if jsonDepth(content, m[0]) == 1 {
			loc = m
			break
		}
	}
	if loc == nil {
		return errors.New("package.json has no version field")
	}
	var out []byte
	out = append(out, content[:loc[4]]...)
	out = append(out, strings.TrimPrefix(version, "v")...)
	out = append(out, content[loc[5]:]...)
	return errors.Wrap(os.WriteFile(path, out, 0o644), "could not write package.json") // nolint:gosec
}
