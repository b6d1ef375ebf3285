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

package data

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

type PIIType string

const (
	PIIEmail      PIIType = "email"
	PIIPhone      PIIType = "phone"
	PIISSN        PIIType = "ssn"
	PIICreditCard PIIType = "credit-card"
	PIIIPv4       PIIType = "ipv4"
	PIIIBAN       PIIType = "iban"
)

type piiPattern struct {
	Type  PIIType
	Regex *regexp.Regexp
	// Valid filters out matches the regex alone cannot rule out.
	Valid func(match string) bool
}

// patterns are applied in order. A later pattern never reports text an earlier one already matched.
var patterns = []piiPattern{
	{Type: PIIIBAN, Regex: regexp.MustCompile(`\b[A-Z]{2}\d{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,3})?\b`), Valid: validIBAN},
	{Type: PIICreditCard, Regex: regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`), Valid: validLuhn},
	{Type: PIISSN, Regex: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), Valid: validSSN},
	{Type: PIIEmail, Regex: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{Type: PIIIPv4, Regex: regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), Valid: validIPv4},
	{Type: PIIPhone, Regex: regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?(?:\(\d{2,4}\)|\b\d{2,4})[ .-]\d{3,4}[ .-]?\d{3,4}\b`)},
}

type PIIMatch struct {
	Type PIIType `json:"type"`
	// Value is masked, only the last four characters stay readable.
	Value  string `json:"value"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type PIIFinding struct {
	File string `json:"file"`
	PIIMatch
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func validLuhn(s string) bool {
	digits := digitsOnly(s)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func validIPv4(s string) bool {
	for octet := range strings.SplitSeq(s, ".") {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

func validSSN(s string) bool {
	area, group, serial := s[0:3], s[4:6], s[7:11]
	return area != "000" && area != "666" && area[0] != '9' && group != "00" && serial != "0000"
}

// validIBAN checks the ISO 13616 mod-97 checksum.
func validIBAN(s string) bool {
	iban := strings.ReplaceAll(s, " ", "")
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	remainder := 0
	for _, r := range rearranged {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r >= 'A' && r <= 'Z':
			v = int(r-'A') + 10
		default:
			return false
		}
		if v >= 10 {
			remainder = (remainder*100 + v) % 97
		} else {
			remainder = (remainder*10 + v) % 97
		}
	}
	return remainder == 1
}

// Mask keeps the last four characters of value.
func Mask(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

type span struct{ start, end int }

func overlaps(spans []span, s span) bool {
	return slices.ContainsFunc(spans, func(o span) bool {
		return s.start < o.end && o.start < s.end
	})
}

// ScanText returns every PII match in text ordered by line and column.
func ScanText(text string) []PIIMatch {
	matches := []PIIMatch{}
	for i, line := range strings.Split(text, "\n") {
		var claimed []span
		var lineMatches []PIIMatch
		for _, p := range patterns {
			for _, loc := range p.Regex.FindAllStringIndex(line, -1) {
				s := span{loc[0], loc[1]}
				value := line[s.start:s.end]
				if overlaps(claimed, s) || (p.Valid != nil && !p.Valid(value)) {
					continue
				}
				claimed = append(claimed, s)
				lineMatches = append(lineMatches, PIIMatch{
					Type:   p.Type,
					Value:  Mask(value),
					Line:   i + 1,
					Column: utf8.RuneCountInString(line[:s.start]) + 1,
				})
			}
		}
		slices.SortFunc(lineMatches, func(a, b PIIMatch) int { return a.Column - b.Column })
		matches = append(matches, lineMatches...)
	}
	return matches
}

// IsBinary reports whether content looks like a binary file.
func IsBinary(content []byte) bool {
	head := content[:min(len(content), 8000)]
	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(head)
}

// ScanFiles scans every text file below root with one of exts. An empty exts scans every file.
// File paths are relative to root.
func ScanFiles(root string, exts []string) ([]PIIFinding, error) {
	files, err := utils.FindFilesByExt(root, exts...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not list files in %s", root)
	}

	findings := []PIIFinding{}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read %s", file)
		}
		if IsBinary(content) {
			continue
		}
		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = file
		}
		for _, m := range ScanText(string(content)) {
			findings = append(findings, PIIFinding{File: rel, PIIMatch: m})
		}
	}
	return findings, nil
}

var columnHints = map[PIIType][]string{
	PIIEmail:      {"email", "mail", "e_mail"},
	PIIPhone:      {"phone", "mobile", "tel", "fax"},
	PIISSN:        {"ssn", "social_security"},
	PIICreditCard: {"credit_card", "creditcard", "card_number", "cc", "pan"},
	PIIIPv4:       {"ip", "ipv4", "ip_address", "remote_addr"},
	PIIIBAN:       {"iban"},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func hintFor(name string) PIIType {
	lower := strings.ToLower(name)
	normalized := strings.Trim(nonAlnum.ReplaceAllString(lower, "_"), "_")
	tokens := strings.Split(normalized, "_")
	for _, p := range patterns {
		for _, hint := range columnHints[p.Type] {
			// short hints like "ip" only match whole tokens
			if len(hint) >= 4 && strings.Contains(normalized, hint) {
				return p.Type
			}
			if normalized == hint || slices.Contains(tokens, hint) {
				return p.Type
			}
		}
	}
	return ""
}

// ClassifyColumn returns the PII type of a column. The column name wins, otherwise the type
// matched by the largest share of non-empty samples is returned if that share reaches threshold
// (0 to 1). An empty type means the column holds no PII.
func ClassifyColumn(name string, samples []string, threshold float64) PIIType {
	if t := hintFor(name); t != "" {
		return t
	}

	counts := map[PIIType]int{}
	total := 0
	for _, sample := range samples {
		sample = strings.TrimSpace(sample)
		if sample == "" {
			continue
		}
		total++
		seen := map[PIIType]bool{}
		for _, m := range ScanText(sample) {
			if !seen[m.Type] {
				seen[m.Type] = true
				counts[m.Type]++
			}
		}
	}
	if total == 0 {
		return ""
	}

	var best PIIType
	bestShare := 0.0
	for _, p := range patterns {
		share := float64(counts[p.Type]) / float64(total)
		if share > bestShare {
			best, bestShare = p.Type, share
		}
	}
	if best == "" || bestShare < threshold {
		return ""
	}
	return best
}
