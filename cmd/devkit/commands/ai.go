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
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/l3montree-dev/devkit/ai"
)

func NewAICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Track token usage and pack project context for language models",
	}
	cmd.AddCommand(newUsageCommand(), newContextCommand())
	return cmd
}

func ledgerPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("ledger"); p != "" {
		return p
	}
	return filepath.Join(projectPath(), ai.DefaultLedgerFile)
}

func newUsageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Record and report token usage",
	}
	cmd.PersistentFlags().String("ledger", "", "The ledger file. Defaults to "+ai.DefaultLedgerFile+" in the project.")

	recordCmd := &cobra.Command{
		Use:     "record",
		Short:   "Record the tokens of one request",
		Example: `  devkit ai usage record --model gpt-4o --task review --input 1200 --output 350`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := ai.UsageEntry{}
			entry.Model, _ = cmd.Flags().GetString("model")
			entry.Task, _ = cmd.Flags().GetString("task")
			entry.InputTokens, _ = cmd.Flags().GetInt("input")
			entry.OutputTokens, _ = cmd.Flags().GetInt("output")

			ledger, err := ai.RecordUsage(ledgerPath(cmd), entry)
			if err != nil {
				return err
			}
			slog.Info("recorded usage", "model", entry.Model, "tokens", entry.Total(), "entries", len(ledger.Entries))
			return nil
		},
	}
	recordCmd.Flags().String("model", "", "The model that served the request")
	recordCmd.Flags().String("task", "", "What the request was for")
	recordCmd.Flags().Int("input", 0, "Input tokens")
	recordCmd.Flags().Int("output", 0, "Output tokens")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the usage per model and task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, _ := cmd.Flags().GetDuration("since")
			ledger, err := ai.LoadLedger(ledgerPath(cmd))
			if err != nil {
				return err
			}
			summary := ai.Summarize(ledger, time.Now().Add(-since))

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(summary)
			}

			tw := newTable("Model", "Requests", "Input", "Output", "Total")
			for _, t := range summary.ByModel {
				tw.AppendRow([]any{t.Name, t.Requests, t.InputTokens, t.OutputTokens, t.Total()})
			}
			tw.AppendFooter([]any{"total", summary.Requests, summary.InputTokens, summary.OutputTokens, summary.TotalTokens()})
			printTable(tw)

			tw = newTable("Task", "Requests", "Total")
			for _, t := range summary.ByTask {
				tw.AppendRow([]any{t.Name, t.Requests, t.Total()})
			}
			printTable(tw)

			if ledger.Budget.MonthlyTokens > 0 {
				fmt.Printf("budget: %d of %d tokens left\n", summary.BudgetRemaining, ledger.Budget.MonthlyTokens)
			}
			if summary.OverBudget {
				return errors.New("token budget exceeded")
			}
			return nil
		},
	}
	reportCmd.Flags().Duration("since", 30*24*time.Hour, "Only count requests newer than this")
	reportCmd.Flags().Bool("json", false, "Print the summary as json")

	cmd.AddCommand(recordCmd, reportCmd)
	return cmd
}

func newContextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context [dir]",
		Short: "Pack source files into one markdown document within a token budget",
		Long: `Packs source files into one markdown document within a token budget. Env files
and binary files are always skipped, files containing personal data are skipped
unless --includePII is set.`,
		Example: `  devkit ai context src --ext .go,.md --maxTokens 50000 -o context.md`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ai.ContextOptions{Root: projectPath()}
			if len(args) == 1 {
				opts.Root = args[0]
			}
			opts.Extensions, _ = cmd.Flags().GetStringSlice("ext")
			opts.MaxTokens, _ = cmd.Flags().GetInt("maxTokens")
			includePII, _ := cmd.Flags().GetBool("includePII")
			opts.ExcludePII = !includePII

			bundle, err := ai.BuildContext(opts)
			if err != nil {
				return err
			}
			for _, s := range bundle.Skipped {
				slog.Debug("skipped file", "path", s.Path, "reason", s.Reason)
			}
			if bundle.Truncated {
				slog.Warn("token budget reached, not every file was packed", "maxTokens", opts.MaxTokens)
			}

			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				fmt.Print(bundle.Render())
			} else if err := os.WriteFile(out, []byte(bundle.Render()), 0o644); err != nil {
				return errors.Wrap(err, "could not write context")
			}
			slog.Info("packed context", "files", len(bundle.Files), "tokens", bundle.Tokens, "skipped", len(bundle.Skipped))
			return nil
		},
	}
	cmd.Flags().StringSlice("ext", nil, "Only pack files with these extensions")
	cmd.Flags().Int("maxTokens", 100000, "The token budget. 0 disables the limit.")
	cmd.Flags().Bool("includePII", false, "Pack files that contain personal data")
	cmd.Flags().StringP("output", "o", "", "Write the document to a file instead of stdout")
	return cmd
}
