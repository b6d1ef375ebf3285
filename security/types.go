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

package security

import "strings"

type Finding struct {
	Scanner     string `json:"scanner"`
	RuleID      string `json:"ruleId"`
	Description string `json:"description"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	// Secret is always redacted.
	Secret   string `json:"secret"`
	Commit   string `json:"commit,omitempty"`
	Author   string `json:"author,omitempty"`
	Severity string `json:"severity"`
	Verified bool   `json:"verified"`
}

type ScanResult struct {
	Scanner   string    `json:"scanner"`
	Findings  []Finding `json:"findings"`
	ExitCode  int       `json:"exitCode"`
	RawOutput string    `json:"-"`
}

func (r ScanResult) Passed() bool {
	return len(r.Findings) == 0
}

type SecurityReport struct {
	Results []ScanResult `json:"results"`
	Total   int          `json:"total"`
	Passed  bool         `json:"passed"`
}

func MergeScanResults(results ...ScanResult) SecurityReport {
	report := SecurityReport{Results: results, Passed: true}
	for _, r := range results {
		report.Total += len(r.Findings)
		if !r.Passed() {
			report.Passed = false
		}
	}
	return report
}

// Redact keeps the first four characters of a secret.
func Redact(secret string) string {
	secret = strings.TrimSpace(secret)
	runes := []rune(secret)
	if len(runes) <= 4 {
		return "*****"
	}
	return string(runes[:4]) + "*****"
}
