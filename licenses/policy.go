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

package licenses

import (
	"fmt"
	"slices"
	"strings"
)

type PackageLicense struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	License string `json:"license"`
	Path    string `json:"path,omitempty"`
}

func (p PackageLicense) ID() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

type Policy struct {
	Allow []string `json:"allow" mapstructure:"allow"`
	Block []string `json:"block" mapstructure:"block"`
}

type Result struct {
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations"`
}

var unknownLicenses = []string{"", "unknown", "unlicensed", "noassertion", "none"}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.Trim(id, "()")
	// license-checker marks guessed licenses with a trailing asterisk
	id = strings.TrimSuffix(id, "*")
	return strings.ToLower(strings.TrimSpace(id))
}

func contains(list []string, id string) bool {
	return slices.ContainsFunc(list, func(el string) bool {
		return normalizeID(el) == id
	})
}

// allowed decides a single identifier. The blocklist wins, an empty allowlist allows everything else.
func (p Policy) allowed(id string) bool {
	if contains(p.Block, id) {
		return false
	}
	if len(p.Allow) == 0 {
		return true
	}
	return contains(p.Allow, id)
}

// splitExpression splits on a boolean operator outside of parentheses.
func splitExpression(expr string, op string) []string {
	var parts []string
	depth := 0
	last := 0
	tokens := strings.Fields(expr)
	for i, tok := range tokens {
		depth += strings.Count(tok, "(") - strings.Count(tok, ")")
		if depth == 0 && strings.EqualFold(tok, op) {
			parts = append(parts, strings.Join(tokens[last:i], " "))
			last = i + 1
		}
	}
	parts = append(parts, strings.Join(tokens[last:], " "))
	return parts
}

func stripOuterParens(expr string) string {
	expr = strings.TrimSpace(expr)
	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		inner := expr[1 : len(expr)-1]
		// only strip if the parentheses enclose the whole expression
		depth := 0
		balanced := true
		for _, r := range inner {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth < 0 {
				balanced = false
				break
			}
		}
		if !balanced || depth != 0 {
			break
		}
		expr = strings.TrimSpace(inner)
	}
	return expr
}

// Satisfies evaluates an SPDX expression. OR needs one acceptable alternative, AND needs all.
func (p Policy) Satisfies(expression string) bool {
	expr := stripOuterParens(expression)
	if alternatives := splitExpression(expr, "OR"); len(alternatives) > 1 {
		return slices.ContainsFunc(alternatives, p.Satisfies)
	}
	if conjunction := splitExpression(expr, "AND"); len(conjunction) > 1 {
		for _, c := range conjunction {
			if !p.Satisfies(c) {
				return false
			}
		}
		return true
	}

	// "MIT WITH exception" is judged by the license itself
	id, _, _ := strings.Cut(expr, " WITH ")
	id = normalizeID(id)
	if slices.Contains(unknownLicenses, id) {
		return len(p.Allow) == 0 && !contains(p.Block, id)
	}
	return p.allowed(id)
}

// Check returns one violation per package whose license does not satisfy the policy.
func Check(pkgs []PackageLicense, policy Policy) Result {
	res := Result{Violations: []string{}}
	for _, pkg := range pkgs {
		if policy.Satisfies(pkg.License) {
			continue
		}
		license := pkg.License
		if strings.TrimSpace(license) == "" {
			license = "UNKNOWN"
		}
		res.Violations = append(res.Violations, fmt.Sprintf("%s is licensed under %s", pkg.ID(), license))
	}
	slices.Sort(res.Violations)
	res.Passed = len(res.Violations) == 0
	return res
}
