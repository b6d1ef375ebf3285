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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/l3montree-dev/devkit/normalize"
)

type Changeset struct {
	ID       string                    `json:"id"`
	Releases map[string]normalize.Bump `json:"releases"`
	Summary  string                    `json:"summary"`
}

func (c Changeset) validate() error {
	if len(c.Releases) == 0 {
		return errors.New("a changeset needs at least one package")
	}
	for pkg, bump := range c.Releases {
		switch bump {
		case normalize.BumpMajor, normalize.BumpMinor, normalize.BumpPatch:
		default:
			return errors.Errorf("invalid bump %q for %s", bump, pkg)
		}
	}
	if strings.TrimSpace(c.Summary) == "" {
		return errors.New("a changeset needs a summary")
	}
	return nil
}

const maxSlugLength = 40

// changesetID is the slugged first line of the summary followed by 8 random hex characters.
func changesetID(summary string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(summary), "\n")
	s := slug.Make(first)
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
		if idx := strings.LastIndex(s, "-"); idx > 0 {
			s = s[:idx]
		}
	}
	if s == "" {
		s = "changeset"
	}
	return s + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// WriteChangeset stores cs as .changeset/<id>.md. An empty ID is generated from the summary.
func WriteChangeset(dir string, cs Changeset) (Changeset, error) {
	if err := cs.validate(); err != nil {
		return cs, err
	}
	if cs.ID == "" {
		cs.ID = changesetID(cs.Summary)
	}

	frontmatter := make(map[string]string, len(cs.Releases))
	for pkg, bump := range cs.Releases {
		frontmatter[pkg] = string(bump)
	}
	head, err := yaml.Marshal(frontmatter)
	if err != nil {
		return cs, errors.Wrap(err, "could not encode changeset frontmatter")
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimSpace(cs.Summary))
	buf.WriteString("\n")

	path := filepath.Join(dir, changesetDir, cs.ID+".md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cs, errors.Wrap(err, "could not create changeset directory")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { // nolint:gosec
		return cs, errors.Wrap(err, "could not write changeset")
	}
	return cs, nil
}

func ParseChangeset(id string, content string) (Changeset, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	rest, ok := strings.CutPrefix(strings.TrimLeft(content, "\n"), "---\n")
	if !ok {
		return Changeset{}, fmt.Errorf("changeset %s has no frontmatter", id)
	}
	head, body, ok := strings.Cut(rest, "\n---")
	if !ok {
		// empty frontmatter
		if b, found := strings.CutPrefix(rest, "---"); found {
			head, body = "", b
		} else {
			return Changeset{}, fmt.Errorf("changeset %s has an unterminated frontmatter", id)
		}
	}

	releases := map[string]string{}
	if err := yaml.Unmarshal([]byte(head), &releases); err != nil {
		return Changeset{}, errors.Wrapf(err, "could not parse frontmatter of changeset %s", id)
	}

	cs := Changeset{ID: id, Releases: map[string]normalize.Bump{}, Summary: strings.TrimSpace(body)}
	for pkg, bump := range releases {
		cs.Releases[pkg] = normalize.Bump(bump)
	}
	return cs, nil
}

// ReadChangesets parses every markdown file in .changeset except the README, sorted by ID.
func ReadChangesets(dir string) ([]Changeset, error) {
	entries, err := os.ReadDir(filepath.Join(dir, changesetDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "could not read changeset directory")
	}

	var res []Changeset
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" || strings.EqualFold(e.Name(), "README.md") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, changesetDir, e.Name()))
		if err != nil {
			return nil, errors.Wrap(err, "could not read changeset")
		}
		cs, err := ParseChangeset(strings.TrimSuffix(e.Name(), ".md"), string(content))
		if err != nil {
			return nil, err
		}
		res = append(res, cs)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// PendingBumps keeps the highest bump per package.
func PendingBumps(changesets []Changeset) map[string]normalize.Bump {
	res := map[string]normalize.Bump{}
	for _, cs := range changesets {
		for pkg, bump := range cs.Releases {
			if current, ok := res[pkg]; !ok || bump.Rank() > current.Rank() {
				res[pkg] = bump
			}
		}
	}
	return res
}

// ParseReleases reads "pkg=bump" pairs as given on the command line.
func ParseReleases(pairs []string) (map[string]normalize.Bump, error) {
	res := map[string]normalize.Bump{}
	for _, p := range pairs {
		// scoped packages start with @, so split at the last "="
		idx := strings.LastIndex(p, "=")
		if idx <= 0 {
			return nil, errors.Errorf("invalid release %q, expected <package>=<bump>", p)
		}
		res[strings.TrimSpace(p[:idx])] = normalize.Bump(strings.TrimSpace(p[idx+1:]))
	}
	return res, nil
}
