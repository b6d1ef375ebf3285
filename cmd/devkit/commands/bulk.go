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
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/l3montree-dev/devkit/automation"
)

func NewBulkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Run commands across many repositories",
	}
	cmd.AddCommand(newBulkRunCommand(), newBulkCloneCommand())
	return cmd
}

func newBulkRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a shell command in many directories",
		Long: `Runs a shell command in many directories. The targets are the git repositories
below --root, the directories given with --target, or the task file:

  targets: [../api, ../web]
  command: npm ci && npm test
  concurrency: 4
  stopOnError: true
  timeout: 5m

Every run gets the target directory in $TARGET.`,
		Example: `  devkit bulk run --root ~/src --command "git pull --rebase"
  devkit bulk run --task tasks/update.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var task automation.BulkTask
			if taskFile, _ := cmd.Flags().GetString("task"); taskFile != "" {
				var err error
				if task, err = automation.LoadBulkTask(taskFile); err != nil {
					return err
				}
			}

			if cmd.Flags().Changed("command") || task.Command == "" {
				task.Command, _ = cmd.Flags().GetString("command")
			}
			if cmd.Flags().Changed("concurrency") || task.Concurrency == 0 {
				task.Concurrency, _ = cmd.Flags().GetInt("concurrency")
			}
			if cmd.Flags().Changed("stopOnError") {
				task.StopOnError, _ = cmd.Flags().GetBool("stopOnError")
			}
			if cmd.Flags().Changed("shell") || task.Shell == "" {
				task.Shell, _ = cmd.Flags().GetString("shell")
			}
			targets, _ := cmd.Flags().GetStringArray("target")
			task.Targets = append(task.Targets, targets...)
			if root, _ := cmd.Flags().GetString("root"); root != "" {
				depth, _ := cmd.Flags().GetInt("depth")
				repos, err := automation.DiscoverRepos(root, depth)
				if err != nil {
					return err
				}
				task.Targets = append(task.Targets, repos...)
			}

			if task.Command == "" {
				return errors.New("no command given, use --command or a task file")
			}
			if len(task.Targets) == 0 {
				return errors.New("no targets found")
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			slog.Info("running bulk command", "targets", len(task.Targets), "command", task.Command)
			bar := progressbar.Default(int64(len(task.Targets)), "running")
			results := automation.RunBulk(ctx, task, func(res automation.BulkResult) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()

			tw := newTable("Target", "Status", "Exit code", "Output")
			for _, r := range results {
				output := strings.TrimSpace(r.Stderr)
				if r.Err != nil {
					output = r.Err.Error()
				} else if !r.Failed() {
					output = strings.TrimSpace(r.Stdout)
				}
				tw.AppendRow([]any{r.Target, statusText(!r.Failed()), r.ExitCode, lastLine(output)})
			}
			printTable(tw)

			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				for _, r := range results {
					fmt.Fprintf(os.Stdout, "==> %s\n%s%s\n", r.Target, r.Stdout, r.Stderr)
				}
			}

			summary := automation.Summary(results)
			skipped := len(task.Targets) - len(results)
			slog.Info("bulk run finished", "succeeded", summary.Succeeded, "failed", summary.Failed, "skipped", skipped)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d targets failed", summary.Failed, len(task.Targets))
			}
			return nil
		},
	}
	cmd.Flags().String("task", "", "A yaml or json task file")
	cmd.Flags().StringP("command", "c", "", "The shell command to run")
	cmd.Flags().String("root", "", "Run in every git repository below this directory")
	cmd.Flags().Int("depth", 3, "How deep to search for repositories below --root")
	cmd.Flags().StringArray("target", nil, "A target directory, can be repeated")
	cmd.Flags().Int("concurrency", 4, "How many targets run at the same time")
	cmd.Flags().Bool("stopOnError", false, "Do not start new targets after the first failure")
	cmd.Flags().String("shell", "sh", "The shell that runs the command")
	cmd.Flags().BoolP("verbose", "v", false, "Print the full output of every target")
	return cmd
}

func lastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func newBulkCloneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clone <urls...>",
		Short:   "Shallow clone many repositories",
		Example: `  devkit bulk clone https://github.com/org/api.git https://github.com/org/web.git --dir ~/src/org`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			concurrency, _ := cmd.Flags().GetInt("concurrency")

			ctx, cancel := commandContext(cmd)
			defer cancel()
			results, err := withSpinner("cloning", func() ([]automation.CloneResult, error) {
				return automation.CloneRepos(ctx, args, dir, concurrency)
			})
			if err != nil {
				return err
			}

			failed := 0
			tw := newTable("Repository", "Path", "Status")
			for _, r := range results {
				status := statusText(r.Err == nil)
				if r.Skipped {
					status = "skipped"
				}
				if r.Err != nil {
					failed++
					slog.Error("clone failed", "url", r.URL, "err", r.Err)
				}
				tw.AppendRow([]any{r.URL, r.Path, status})
			}
			printTable(tw)
			if failed > 0 {
				return fmt.Errorf("%d of %d clones failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().String("dir", ".", "The directory to clone into")
	cmd.Flags().Int("concurrency", 4, "How many clones run at the same time")
	return cmd
}
