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
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/l3montree-dev/devkit/gitutil"
	"github.com/l3montree-dev/devkit/lint"
)

func NewGitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git",
		Short: "Commit, branch and repository hygiene",
	}
	cmd.AddCommand(
		newCommitLintCommand(),
		newBranchLintCommand(),
		newVersionInfoCommand(),
		newCleanupCommand(),
		newChangedCommand(),
	)
	return cmd
}

func printViolations(subject string, violations []string) error {
	if len(violations) == 0 {
		slog.Info(subject + " is valid")
		return nil
	}
	for _, v := range violations {
		fmt.Fprintln(os.Stderr, "  ✖ "+v)
	}
	return fmt.Errorf("%s has %d problems", subject, len(violations))
}

func newCommitLintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-lint",
		Short: "Check a commit message against the conventional commit rules",
		Long: `Checks a commit message against the conventional commit rules.

Used as a commit-msg hook the message file is passed by git:

  devkit git commit-lint --file "$1"`,
		Example: `  devkit git commit-lint --message "feat(api): add health endpoint"
  devkit git commit-lint --file .git/COMMIT_EDITMSG --requireScope`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			msg, _ := cmd.Flags().GetString("message")
			if file == "" && msg == "" {
				return errors.New("either --file or --message is required")
			}
			if file != "" {
				content, err := os.ReadFile(file)
				if err != nil {
					return errors.Wrap(err, "could not read commit message")
				}
				msg = string(content)
			}

			types, _ := cmd.Flags().GetStringSlice("types")
			maxHeaderLength, _ := cmd.Flags().GetInt("maxHeaderLength")
			requireScope, _ := cmd.Flags().GetBool("requireScope")

			return printViolations("commit message", gitutil.LintCommitMessage(msg, gitutil.CommitLintOptions{
				Types:           types,
				MaxHeaderLength: maxHeaderLength,
				RequireScope:    requireScope,
			}))
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the commit message from a file")
	cmd.Flags().StringP("message", "m", "", "The commit message")
	cmd.Flags().StringSlice("types", gitutil.DefaultCommitTypes, "The allowed commit types")
	cmd.Flags().Int("maxHeaderLength", 100, "The maximum length of the first line")
	cmd.Flags().Bool("requireScope", false, "Require a scope, e.g. feat(api): ...")
	return cmd
}

func newBranchLintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch-lint [name]",
		Short: "Check a branch name against the allowed prefixes. Defaults to the current branch.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				var err error
				name, err = gitutil.Lister.GetBranchName(projectPath())
				if err != nil {
					return errors.Wrap(err, "could not get current branch")
				}
			}
			prefixes, _ := cmd.Flags().GetStringSlice("prefixes")
			return printViolations(fmt.Sprintf("branch %q", name), gitutil.LintBranchName(name, prefixes))
		},
	}
	cmd.Flags().StringSlice("prefixes", gitutil.DefaultBranchPrefixes, "The allowed branch prefixes")
	return cmd
}

func newVersionInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version-info",
		Short: "Print the latest semver tag and the distance of HEAD to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := gitutil.GetVersionInfo(projectPath())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(info)
			}

			defaultBranch := ""
			if info.DefaultBranch != nil {
				defaultBranch = *info.DefaultBranch
			}
			tw := newTable("Ref", "Tag", "Latest tag", "Commits after tag", "Default branch")
			tw.AppendRow([]any{info.BranchOrTag, info.IsTag, info.LatestTag, info.CommitsAfterTag, defaultBranch})
			printTable(tw)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the info as json")
	return cmd
}

func newCleanupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cleanup",
		Short:   "Delete local branches that are merged into the base branch",
		Example: `  devkit git cleanup --base main --dryRun`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, _ := cmd.Flags().GetString("base")
			protected, _ := cmd.Flags().GetStringSlice("protected")
			dryRun, _ := cmd.Flags().GetBool("dryRun")

			deleted, err := gitutil.CleanupMergedBranches(projectPath(), base, protected, dryRun)
			for _, b := range deleted {
				if dryRun {
					fmt.Println("would delete " + b)
				} else {
					fmt.Println("deleted " + b)
				}
			}
			if err != nil {
				return err
			}
			slog.Info("cleanup finished", "branches", len(deleted), "dryRun", dryRun)
			return nil
		},
	}
	cmd.Flags().String("base", "main", "The branch the others are merged into")
	cmd.Flags().StringSlice("protected", []string{"main", "master", "develop"}, "Branches that are never deleted")
	cmd.Flags().Bool("dryRun", false, "Only print the branches that would be deleted")
	return cmd
}

func newChangedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changed",
		Short: "List the files changed compared to a base ref",
		Example: `  devkit git changed --base origin/main
  devkit git changed --staged --lintable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			staged, _ := cmd.Flags().GetBool("staged")
			base, _ := cmd.Flags().GetString("base")

			var files []string
			var err error
			if staged {
				files, err = gitutil.Lister.StagedFiles(projectPath())
			} else {
				files, err = gitutil.Lister.ChangedFiles(projectPath(), base)
			}
			if err != nil {
				return err
			}
			if lintable, _ := cmd.Flags().GetBool("lintable"); lintable {
				files = lint.FilterLintable(projectPath(), files, nil)
			}
			if len(files) > 0 {
				fmt.Println(strings.Join(files, "\n"))
			}
			return nil
		},
	}
	cmd.Flags().String("base", "origin/main", "The ref to compare against")
	cmd.Flags().Bool("staged", false, "List the staged files instead")
	cmd.Flags().Bool("lintable", false, "Only list files eslint and prettier understand")
	return cmd
}
