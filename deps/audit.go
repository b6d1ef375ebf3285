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

package deps

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityOrder = []Severity{SeverityInfo, SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical}

// ParseSeverity accepts the severities npm, pnpm and yarn report. "medium" is treated as moderate.
func ParseSeverity(s string) (Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "medium" {
		return SeverityModerate, nil
	}
	for _, sev := range severityOrder {
		if string(sev) == s {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity: %s", s)
}

func (s Severity) Rank() int {
	for i, sev := range severityOrder {
		if sev == s {
			return i
		}
	}
	return -1
}

type Advisory struct {
	Name            string   `json:"name"`
	Severity        Severity `json:"severity"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	VulnerableRange string   `json:"vulnerableRange"`
	CVSSVector      string   `json:"cvssVector,omitempty"`
	CVSSScore       float64  `json:"cvssScore"`
	FixAvailable    bool     `json:"fixAvailable"`
}

type AuditSummary struct {
	Counts     map[Severity]int `json:"counts"`
	Advisories []Advisory       `json:"advisories"`
}

func (a AuditSummary) Total() int {
	return len(a.Advisories)
}

// Exceeds reports whether any advisory is at or above threshold.
func (a AuditSummary) Exceeds(threshold Severity) bool {
	for _, adv := range a.Advisories {
		if adv.Severity.Rank() >= threshold.Rank() {
			return true
		}
	}
	return false
}

type cvssInfo struct {
	Score        float64 `json:"score"`
	VectorString string  `json:"vectorString"`
}

// npm >= 7
type npmAuditV2 struct {
	Vulnerabilities map[string]struct {
		Name         string            `json:"name"`
		Severity     string            `json:"severity"`
		Range        string            `json:"range"`
		Via          []json.RawMessage `json:"via"`
		FixAvailable json.RawMessage   `json:"fixAvailable"`
	} `json:"vulnerabilities"`
}

type npmVia struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Severity string   `json:"severity"`
	Range    string   `json:"range"`
	CVSS     cvssInfo `json:"cvss"`
}

// npm 6 and pnpm
type v1Advisory struct {
	ModuleName         string   `json:"module_name"`
	Severity           string   `json:"severity"`
	Title              string   `json:"title"`
	URL                string   `json:"url"`
	VulnerableVersions string   `json:"vulnerable_versions"`
	PatchedVersions    string   `json:"patched_versions"`
	CVSS               cvssInfo `json:"cvss"`
}

type auditV1 struct {
	Advisories map[string]v1Advisory `json:"advisories"`
}

type yarnAuditLine struct {
	Type string `json:"type"`
	Data struct {
		Advisory v1Advisory `json:"advisory"`
	} `json:"data"`
}

// Audit runs "<pm> audit --json". The audit exits non-zero as soon as advisories exist, so the exit
// code is ignored and only the output is evaluated.
func Audit(ctx context.Context, dir string, pm PackageManager) (AuditSummary, error) {
	res, err := utils.Runner.Run(ctx, utils.CommandOptions{
		Name: string(pm),
		Args: []string{"audit", "--json"},
		Dir:  dir,
	})
	if err != nil {
		return AuditSummary{}, errors.Wrapf(err, "could not run %s audit", pm)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return AuditSummary{}, fmt.Errorf("%s audit returned no output (exit code %d): %s", pm, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return ParseAuditOutput(pm, []byte(res.Stdout))
}

// ParseAuditOutput understands the npm v2 report, the v1 report pnpm still emits and the line
// delimited yarn classic output.
func ParseAuditOutput(pm PackageManager, out []byte) (AuditSummary, error) {
	var advisories []Advisory
	var err error
	if pm == Yarn {
		advisories, err = parseYarnAudit(out)
	} else {
		advisories, err = parseJSONAudit(out)
	}
	if err != nil {
		return AuditSummary{}, err
	}

	sort.SliceStable(advisories, func(i, j int) bool {
		if advisories[i].Severity != advisories[j].Severity {
			return advisories[i].Severity.Rank() > advisories[j].Severity.Rank()
		}
		return advisories[i].Name < advisories[j].Name
	})

	summary := AuditSummary{Counts: map[Severity]int{}, Advisories: advisories}
	for _, sev := range severityOrder {
		summary.Counts[sev] = 0
	}
	for _, adv := range advisories {
		summary.Counts[adv.Severity]++
	}
	return summary, nil
}

func parseJSONAudit(out []byte) ([]Advisory, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, errors.Wrap(err, "could not parse audit output")
	}

	if _, ok := probe["vulnerabilities"]; ok {
		var report npmAuditV2
		if err := json.Unmarshal(out, &report); err != nil {
			return nil, errors.Wrap(err, "could not parse npm audit report")
		}
		var res []Advisory
		for name, vuln := range report.Vulnerabilities {
			fix := fixAvailable(vuln.FixAvailable)
			for _, raw := range vuln.Via {
				// string entries point to another vulnerable package which is listed on its own
				var via npmVia
				if err := json.Unmarshal(raw, &via); err != nil {
					continue
				}
				adv, err := newAdvisory(utils.OrDefault(utils.EmptyThenNil(via.Name), name), via.Severity, via.Title, via.URL, via.Range, via.CVSS)
				if err != nil {
					slog.Warn("skipping advisory", "package", name, "err", err)
					continue
				}
				adv.FixAvailable = fix
				res = append(res, adv)
			}
		}
		return utils.DeduplicateSlice(res, func(a Advisory) string { return a.Name + a.URL }), nil
	}

	var report auditV1
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, errors.Wrap(err, "could not parse audit report")
	}
	res := make([]Advisory, 0, len(report.Advisories))
	for _, a := range report.Advisories {
		adv, err := fromV1(a)
		if err != nil {
			slog.Warn("skipping advisory", "package", a.ModuleName, "err", err)
			continue
		}
		res = append(res, adv)
	}
	return res, nil
}

func parseYarnAudit(out []byte) ([]Advisory, error) {
	var res []Advisory
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var line yarnAuditLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.Type != "auditAdvisory" {
			continue
		}
		adv, err := fromV1(line.Data.Advisory)
		if err != nil {
			slog.Warn("skipping advisory", "package", line.Data.Advisory.ModuleName, "err", err)
			continue
		}
		res = append(res, adv)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read yarn audit output")
	}
	return utils.DeduplicateSlice(res, func(a Advisory) string { return a.Name + a.URL }), nil
}

func fromV1(a v1Advisory) (Advisory, error) {
	adv, err := newAdvisory(a.ModuleName, a.Severity, a.Title, a.URL, a.VulnerableVersions, a.CVSS)
	if err != nil {
		return adv, err
	}
	adv.FixAvailable = a.PatchedVersions != "" && a.PatchedVersions != "<0.0.0"
	return adv, nil
}

func newAdvisory(name, severity, title, url, vulnerableRange string, cvss cvssInfo) (Advisory, error) {
	sev, err := ParseSeverity(severity)
	if err != nil {
		return Advisory{}, err
	}
	score := cvss.Score
	if score == 0 && cvss.VectorString != "" {
		score = CVSSBaseScore(cvss.VectorString)
	}
	return Advisory{
		Name:            name,
		Severity:        sev,
		Title:           title,
		URL:             url,
		VulnerableRange: vulnerableRange,
		CVSSVector:      cvss.VectorString,
		CVSSScore:       score,
	}, nil
}

// fixAvailable is either a boolean or an object describing the fix.
func fixAvailable(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return strings.HasPrefix(strings.TrimSpace(string(raw)), "{")
}

// CVSSBaseScore calculates the base score of a CVSS 3.0 or 3.1 vector. Unparseable vectors score 0.
func CVSSBaseScore(vector string) float64 {
	switch {
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		cvss, err := gocvss30.ParseVector(vector)
		if err != nil {
			slog.Warn("Error parsing CVSS vector", "vector", vector, "error", err)
			return 0
		}
		return cvss.BaseScore()
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		cvss, err := gocvss31.ParseVector(vector)
		if err != nil {
			slog.Warn("Error parsing CVSS vector", "vector", vector, "error", err)
			return 0
		}
		return cvss.BaseScore()
	}
	return 0
}
