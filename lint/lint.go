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

package lint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

type Message struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

type FileResult struct {
	Path         string    `json:"path"`
	Messages     []Message `json:"messages"`
	ErrorCount   int       `json:"errorCount"`
	WarningCount int       `json:"warningCount"`
}

type Report struct {
	Tool         string       `json:"tool"`
	Files        []FileResult `json:"files"`
	ErrorCount   int          `json:"errorCount"`
	WarningCount int          `json:"warningCount"`
	FixableCount int          `json:"fixableCount"`
}

// Passed is true without errors. A negative maxWarnings allows any number of warnings.
func (r Report) Passed(maxWarnings int) bool {
	if r.ErrorCount > 0 {
		return false
	}
	return maxWarnings < 0 || r.WarningCount <= maxWarnings
}

type ESLintOptions struct {
	Dir         string
	Paths       []string
	Fix         bool
	MaxWarnings int
}

type eslintResult struct {
	FilePath            string    `json:"filePath"`
	Messages            []Message `json:"messages"`
	ErrorCount          int       `json:"errorCount"`
	WarningCount        int       `json:"warningCount"`
	FixableErrorCount   int       `json:"fixableErrorCount"`
	FixableWarningCount int       `json:"fixableWarningCount"`
}

// RunESLint uses the eslint installed in the project. Exit code 1 means lint errors were found,
// everything above is a crash or a configuration problem.
func RunESLint(ctx context.Context, opts ESLintOptions) (Report, error) {
	args := []string{"--no-install", "eslint", "--format", "json"}
	if opts.Fix {
		args = append(args, "--fix")
	}
	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	args = append(args, paths...)

	res, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "npx", Args: args, Dir: opts.Dir})
	if err != nil {
		return Report{}, errors.Wrap(err, "could not run eslint")
	}
	if res.ExitCode > 1 {
		return Report{}, &utils.CommandError{Name: "eslint", Args: args[1:], ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	}
	return ParseESLintOutput(opts.Dir, []byte(res.Stdout))
}

// ParseESLintOutput converts eslint's json formatter output. Files without messages are dropped and
// paths are made relative to dir.
func ParseESLintOutput(dir string, out []byte) (Report, error) {
	var results []eslintResult
	if err := json.Unmarshal(out, &results); err != nil {
		return Report{}, errors.Wrap(err, "could not parse eslint output")
	}

	report := Report{Tool: "eslint", Files: []FileResult{}}
	for _, r := range results {
		report.ErrorCount += r.ErrorCount
		report.WarningCount += r.WarningCount
		report.FixableCount += r.FixableErrorCount + r.FixableWarningCount
		if len(r.Messages) == 0 {
			continue
		}
		report.Files = append(report.Files, FileResult{
			Path:         relativePath(dir, r.FilePath),
			Messages:     r.Messages,
			ErrorCount:   r.ErrorCount,
			WarningCount: r.WarningCount,
		})
	}
	return report, nil
}

func relativePath(dir string, path string) string {
	if dir == "" || !filepath.IsAbs(path) {
		return path
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(absDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

type PrettierOptions struct {
	Dir   string
	Paths []string
	Write bool
}

// RunPrettier lists unformatted files, or formats them in place when Write is set. Every
// unformatted file counts as one warning.
func RunPrettier(ctx context.Context, opts PrettierOptions) (Report, error) {
	args := []string{"--no-install", "prettier"}
	if opts.Write {
		args = append(args, "--write", "--list-different")
	} else {
		args = append(args, "--list-different")
	}
	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	args = append(args, paths...)

	res, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "npx", Args: args, Dir: opts.Dir})
	if err != nil {
		return Report{}, errors.Wrap(err, "could not run prettier")
	}
	// prettier exits with 1 if files differ and 2 on errors
	if res.ExitCode > 1 {
		return Report{}, &utils.CommandError{Name: "prettier", Args: args[1:], ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	}

	report := Report{Tool: "prettier", Files: []FileResult{}}
	for line := range strings.SplitSeq(res.Stdout, "\n") {
		file := strings.TrimSpace(line)
		if file == "" {
			continue
		}
		// written files are fixed and no longer count as warnings
		if opts.Write {
			report.Files = append(report.Files, FileResult{
				Path:     file,
				Messages: []Message{{RuleID: "prettier", Severity: 0, Message: "file was formatted"}},
			})
			continue
		}
		report.Files = append(report.Files, FileResult{
			Path:         file,
			Messages:     []Message{{RuleID: "prettier", Severity: 1, Message: "file is not formatted"}},
			WarningCount: 1,
		})
		report.WarningCount++
		report.FixableCount++
	}
	return report, nil
}

var DefaultLintableExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts", ".vue", ".svelte"}

// FilterLintable keeps the files with one of exts that still exist on disk, relative files are
// resolved against dir.
func FilterLintable(dir string, files []string, exts []string) []string {
	if len(exts) == 0 {
		exts = DefaultLintableExtensions
	}
	return utils.Filter(files, func(f string) bool {
		if !slices.Contains(exts, strings.ToLower(filepath.Ext(f))) {
			return false
		}
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, f)
		}
		_, err := os.Stat(p)
		return err == nil
	})
}
