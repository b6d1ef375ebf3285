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

package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/l3montree-dev/devkit/gitutil"
	"github.com/l3montree-dev/devkit/lint"
)

func NewLintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Run eslint and prettier",
	}
	cmd.AddCommand(newESLintCommand(), newPrettierCommand(), newLintStagedCommand())
	return cmd
}

func printReport(report lint.Report) {
	if len(report.Files) == 0 {
		return
	}
	tw := newTable("File", "Line", "Rule", "Severity", "Message")
	for _, f := range report.Files {
		for _, m := range f.Messages {
			severity := "warning"
			switch {
			case m.Severity >= 2:
				severity = "error"
			case m.Severity == 0:
				severity = "fixed"
			}
			tw.AppendRow([]any{f.Path, m.Line, m.RuleID, severity, m.Message})
		}
	}
	printTable(tw)
}

func reportError(report lint.Report, maxWarnings int) error {
	slog.Info(report.Tool+" finished", "errors", report.ErrorCount, "warnings", report.WarningCount, "fixable", report.FixableCount)
	if !report.Passed(maxWarnings) {
		return fmt.Errorf("%s found %d errors and %d warnings", report.Tool, report.ErrorCount, report.WarningCount)
	}
	return nil
}

func newESLintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eslint [paths...]",
		Short: "Run eslint and print the problems",
		Example: `  devkit lint eslint src --maxWarnings 0
  devkit lint eslint --fix`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fix, _ := cmd.Flags().GetBool("fix")
			maxWarnings, _ := cmd.Flags().GetInt("maxWarnings")

			ctx, cancel := commandContext(cmd)
			defer cancel()
			report, err := withSpinner("running eslint", func() (lint.Report, error) {
				return lint.RunESLint(ctx, lint.ESLintOptions{Dir: projectPath(), Paths: args, Fix: fix, MaxWarnings: maxWarnings})
			})
			if err != nil {
				return err
			}
			printReport(report)
			return reportError(report, maxWarnings)
		},
	}
	cmd.Flags().Bool("fix", false, "Fix problems in place")
	cmd.Flags().Int("maxWarnings", -1, "Fail when there are more warnings. -1 allows any number.")
	return cmd
}

func newPrettierCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prettier [paths...]",
		Short: "Check the formatting with prettier",
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")

			ctx, cancel := commandContext(cmd)
			defer cancel()
			report, err := withSpinner("running prettier", func() (lint.Report, error) {
				return lint.RunPrettier(ctx, lint.PrettierOptions{Dir: projectPath(), Paths: args, Write: write})
			})
			if err != nil {
				return err
			}
			printReport(report)
			return reportError(report, 0)
		},
	}
	cmd.Flags().Bool("write", false, "Format the files in place")
	return cmd
}

func newLintStagedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staged",
		Short: "Run eslint and prettier on the staged files only",
		Long: `Runs eslint and prettier on the staged files only. Meant for a pre-commit hook:

  devkit lint staged --fix`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fix, _ := cmd.Flags().GetBool("fix")

			staged, err := gitutil.Lister.StagedFiles(projectPath())
			if err != nil {
				return err
			}
			files := lint.FilterLintable(projectPath(), staged, nil)
			if len(files) == 0 {
				slog.Info("no staged files to lint")
				return nil
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			eslintReport, err := lint.RunESLint(ctx, lint.ESLintOptions{Dir: projectPath(), Paths: files, Fix: fix, MaxWarnings: -1})
			if err != nil {
				return err
			}
			prettierReport, err := lint.RunPrettier(ctx, lint.PrettierOptions{Dir: projectPath(), Paths: files, Write: fix})
			if err != nil {
				return err
			}
			printReport(eslintReport)
			printReport(prettierReport)

			if err := reportError(eslintReport, -1); err != nil {
				return err
			}
			return reportError(prettierReport, 0)
		},
	}
	cmd.Flags().Bool("fix", false, "Fix problems and format files in place. Remember to stage them again.")
	return cmd
}
