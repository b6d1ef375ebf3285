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

package gitutil

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var ConventionalCommitRegex = regexp.MustCompile(`^(\w+)(\(([\w\-./ ]+)\))?(!)?: (.+)$`)

var footerRegex = regexp.MustCompile(`^([\w-]+|BREAKING CHANGE)(: | #)(.*)$`)

var DefaultCommitTypes = []string{"feat", "fix", "docs", "style", "refactor", "perf", "test", "build", "ci", "chore", "revert"}

var DefaultBranchPrefixes = []string{"feat/", "fix/", "chore/", "docs/", "refactor/", "test/", "ci/", "release/", "hotfix/"}

var longLivedBranches = []string{"main", "master", "develop"}

var branchNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._/-]*$`)

type ConventionalCommit struct {
	Type        string
	Scope       string
	Breaking    bool
	Description string
	Body        string
	Footers     map[string]string
	// Hash is only set for commits read from history.
	Hash string
}

func ParseConventionalCommit(msg string) (ConventionalCommit, error) {
	msg = strings.TrimSpace(stripComments(msg))
	header, rest, _ := strings.Cut(msg, "\n")
	header = strings.TrimSpace(header)

	m := ConventionalCommitRegex.FindStringSubmatch(header)
	if m == nil {
		return ConventionalCommit{}, fmt.Errorf("commit header %q does not follow <type>(<scope>): <description>", header)
	}

	c := ConventionalCommit{
		Type:        strings.ToLower(m[1]),
		Scope:       m[3],
		Breaking:    m[4] == "!",
		Description: m[5],
		Footers:     map[string]string{},
	}

	rest = strings.TrimSpace(rest)
	body, trailer := "", rest
	if i := strings.LastIndex(rest, "\n\n"); i >= 0 {
		body, trailer = rest[:i], strings.TrimSpace(rest[i+2:])
	}
	firstLine, _, _ := strings.Cut(trailer, "\n")
	if !footerRegex.MatchString(firstLine) {
		// no footers, the last paragraph belongs to the body
		c.Body = rest
		return c, nil
	}

	var key string
	for line := range strings.SplitSeq(trailer, "\n") {
		if fm := footerRegex.FindStringSubmatch(line); fm != nil {
			key = fm[1]
			c.Footers[key] = strings.TrimSpace(fm[3])
			if key == "BREAKING CHANGE" || key == "BREAKING-CHANGE" {
				c.Breaking = true
			}
			continue
		}
		c.Footers[key] += "\n" + line
	}
	c.Body = strings.TrimSpace(body)
	return c, nil
}

func stripComments(msg string) string {
	var res []string
	for line := range strings.SplitSeq(msg, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		res = append(res, line)
	}
	return strings.Join(res, "\n")
}

type CommitLintOptions struct {
	Types           []string
	MaxHeaderLength int
	RequireScope    bool
}

func isExempt(header string) bool {
	return strings.HasPrefix(header, "Merge ") ||
		strings.HasPrefix(header, "Revert \"") ||
		strings.HasPrefix(header, "fixup! ") ||
		strings.HasPrefix(header, "squash! ")
}

// LintCommitMessage returns every rule the message violates. A valid message yields no violations.
func LintCommitMessage(msg string, opts CommitLintOptions) []string {
	if len(opts.Types) == 0 {
		opts.Types = DefaultCommitTypes
	}
	if opts.MaxHeaderLength == 0 {
		opts.MaxHeaderLength = 100
	}

	cleaned := strings.TrimSpace(stripComments(msg))
	if cleaned == "" {
		return []string{"commit message is empty"}
	}
	header, _, _ := strings.Cut(cleaned, "\n")
	header = strings.TrimSpace(header)
	if isExempt(header) {
		return nil
	}

	var violations []string
	if len(header) > opts.MaxHeaderLength {
		violations = append(violations, fmt.Sprintf("header is %d characters long, max is %d", len(header), opts.MaxHeaderLength))
	}

	c, err := ParseConventionalCommit(cleaned)
	if err != nil {
		return append(violations, err.Error())
	}

	if !slices.Contains(opts.Types, c.Type) {
		violations = append(violations, fmt.Sprintf("type %q is not allowed, use one of: %s", c.Type, strings.Join(opts.Types, ", ")))
	}
	if opts.RequireScope && c.Scope == "" {
		violations = append(violations, "scope is required")
	}
	if strings.HasSuffix(c.Description, ".") {
		violations = append(violations, "description must not end with a period")
	}
	return violations
}

// LintBranchName checks name against the allowed prefixes. Long-lived branches are always valid.
func LintBranchName(name string, prefixes []string) []string {
	if len(prefixes) == 0 {
		prefixes = DefaultBranchPrefixes
	}
	if slices.Contains(longLivedBranches, name) {
		return nil
	}

	var violations []string
	if !branchNameRegex.MatchString(name) {
		violations = append(violations, "branch name may only contain lowercase letters, digits, '.', '_', '-' and '/'")
	}
	hasPrefix := false
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(name, p); ok {
			hasPrefix = true
			if rest == "" {
				violations = append(violations, fmt.Sprintf("branch name needs a description after %q", p))
			}
			break
		}
	}
	if !hasPrefix {
		violations = append(violations, fmt.Sprintf("branch name must start with one of: %s", strings.Join(prefixes, ", ")))
	}
	return violations
}
