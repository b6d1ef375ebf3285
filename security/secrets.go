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

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

type GitleaksOptions struct {
	Path string
	// Mode is "dir" (working tree) or "git" (history).
	Mode     string
	Config   string
	Baseline string
}

type gitleaksFinding struct {
	Description string `json:"Description"`
	StartLine   int    `json:"StartLine"`
	Secret      string `json:"Secret"`
	File        string `json:"File"`
	Commit      string `json:"Commit"`
	Author      string `json:"Author"`
	RuleID      string `json:"RuleID"`
}

// RunGitleaks writes the json report to a temporary file, which is removed after parsing.
// Exit code 1 means leaks were found.
func RunGitleaks(ctx context.Context, opts GitleaksOptions) (ScanResult, error) {
	mode := utils.OrDefault(utils.EmptyThenNil(opts.Mode), "dir")
	if mode != "dir" && mode != "git" {
		return ScanResult{}, errors.Errorf("unsupported gitleaks mode %s", mode)
	}
	path := utils.OrDefault(utils.EmptyThenNil(opts.Path), ".")

	reportPath := filepath.Join(os.TempDir(), "devkit-gitleaks-"+uuid.NewString()+".json")
	defer os.Remove(reportPath)

	args := []string{mode, path, "--report-format", "json", "--report-path", reportPath, "--exit-code", "1", "--no-banner"}
	if opts.Config != "" {
		args = append(args, "--config", opts.Config)
	}
	if opts.Baseline != "" {
		args = append(args, "--baseline-path", opts.Baseline)
	}

	slog.Info("Starting secret scanning", "scanner", "gitleaks", "path", path, "mode", mode)
	res, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "gitleaks", Args: args})
	if err != nil {
		return ScanResult{}, errors.Wrap(err, "could not run gitleaks")
	}
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return ScanResult{}, &utils.CommandError{Name: "gitleaks", Args: args, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	}

	content, err := os.ReadFile(reportPath)
	if err != nil {
		return ScanResult{}, errors.Wrap(err, "could not read gitleaks report")
	}
	findings, err := ParseGitleaksReport(content)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Scanner: "gitleaks", Findings: findings, ExitCode: res.ExitCode, RawOutput: string(content)}, nil
}

func ParseGitleaksReport(content []byte) ([]Finding, error) {
	if strings.TrimSpace(string(content)) == "" {
		return []Finding{}, nil
	}
	var report []gitleaksFinding
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.Wrap(err, "could not parse gitleaks report")
	}

	findings := make([]Finding, 0, len(report))
	for _, f := range report {
		findings = append(findings, Finding{
			Scanner:     "gitleaks",
			RuleID:      f.RuleID,
			Description: f.Description,
			File:        f.File,
			Line:        f.StartLine,
			Secret:      Redact(f.Secret),
			Commit:      f.Commit,
			Author:      f.Author,
			Severity:    "high",
		})
	}
	return findings, nil
}

type TrufflehogOptions struct {
	Path string
	// Mode is "filesystem" or "git".
	Mode         string
	OnlyVerified bool
}

type trufflehogLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Commit string `json:"commit"`
	Email  string `json:"email"`
}

type trufflehogLine struct {
	SourceMetadata struct {
		Data struct {
			Filesystem *trufflehogLocation `json:"Filesystem"`
			Git        *trufflehogLocation `json:"Git"`
		} `json:"Data"`
	} `json:"SourceMetadata"`
	DetectorName string `json:"DetectorName"`
	Verified     bool   `json:"Verified"`
	Raw          string `json:"Raw"`
}

func RunTrufflehog(ctx context.Context, opts TrufflehogOptions) (ScanResult, error) {
	mode := utils.OrDefault(utils.EmptyThenNil(opts.Mode), "filesystem")
	path := utils.OrDefault(utils.EmptyThenNil(opts.Path), ".")
	target := path
	switch mode {
	case "filesystem":
	case "git":
		if !strings.Contains(path, "://") {
			abs, err := filepath.Abs(path)
			if err != nil {
				return ScanResult{}, errors.Wrap(err, "could not resolve repository path")
			}
			target = "file://" + abs
		}
	default:
		return ScanResult{}, errors.Errorf("unsupported trufflehog mode %s", mode)
	}

	args := []string{mode, target, "--json", "--no-update"}
	if opts.OnlyVerified {
		args = append(args, "--results=verified")
	}

	slog.Info("Starting secret scanning", "scanner", "trufflehog", "path", path, "mode", mode)
	res, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "trufflehog", Args: args, ThrowOnError: true})
	if err != nil {
		return ScanResult{}, errors.Wrap(err, "could not run trufflehog")
	}
	findings := ParseTrufflehogOutput(res.Stdout)
	return ScanResult{Scanner: "trufflehog", Findings: findings, ExitCode: res.ExitCode, RawOutput: res.Stdout}, nil
}

// ParseTrufflehogOutput reads one json object per line. Log lines in between are skipped.
func ParseTrufflehogOutput(out string) []Finding {
	findings := []Finding{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var l trufflehogLine
		if err := json.Unmarshal([]byte(line), &l); err != nil || l.DetectorName == "" {
			continue
		}

		loc := l.SourceMetadata.Data.Filesystem
		if loc == nil {
			loc = l.SourceMetadata.Data.Git
		}
		if loc == nil {
			loc = &trufflehogLocation{}
		}

		severity := "high"
		if l.Verified {
			severity = "critical"
		}
		findings = append(findings, Finding{
			Scanner:     "trufflehog",
			RuleID:      strings.ToLower(l.DetectorName),
			Description: l.DetectorName + " secret",
			File:        loc.File,
			Line:        loc.Line,
			Secret:      Redact(l.Raw),
			Commit:      loc.Commit,
			Author:      loc.Email,
			Severity:    severity,
			Verified:    l.Verified,
		})
	}
	return findings
}
