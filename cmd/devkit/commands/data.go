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
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3montree-dev/devkit/data"
)

func NewDataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Personal data scans, schema snapshots and drift detection",
	}
	cmd.AddCommand(newPIICommand(), newSnapshotCommand(), newDriftCommand(), newValidateCommand())
	return cmd
}

func newPIICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pii [path]",
		Short: "Scan files for personal data like emails, phone numbers or credit cards",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := projectPath()
			if len(args) == 1 {
				root = args[0]
			}
			exts, _ := cmd.Flags().GetStringSlice("ext")

			findings, err := withSpinner("scanning for personal data", func() ([]data.PIIFinding, error) {
				return data.ScanFiles(root, exts)
			})
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if err := printJSON(findings); err != nil {
					return err
				}
			} else if len(findings) > 0 {
				tw := newTable("File", "Line", "Column", "Type", "Value")
				for _, f := range findings {
					tw.AppendRow([]any{f.File, f.Line, f.Column, f.Type, f.Value})
				}
				printTable(tw)
			}

			if len(findings) > 0 {
				return fmt.Errorf("found personal data in %d places", len(findings))
			}
			slog.Info("no personal data found", "root", root)
			return nil
		},
	}
	cmd.Flags().StringSlice("ext", nil, "Only scan files with these extensions")
	cmd.Flags().Bool("json", false, "Print the findings as json")
	return cmd
}

func newSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <records>",
		Short: "Infer the schema of a csv, ndjson or json file and store it as baseline",
		Long: `Infers the schema of a csv, ndjson or json file and stores it as baseline.
Columns are classified for personal data as well, the classification is printed
but not stored.`,
		Example: `  devkit data snapshot exports/users.csv --out schemas/users.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := data.LoadRecords(args[0])
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			schema := data.InferSchema(name, records)

			threshold, _ := cmd.Flags().GetFloat64("piiThreshold")
			tw := newTable("Column", "Type", "PII")
			for _, column := range schema.ColumnNames() {
				samples := make([]string, 0, len(records))
				for _, r := range records {
					if v, ok := r[column]; ok && v != nil {
						samples = append(samples, fmt.Sprint(v))
					}
				}
				tw.AppendRow([]any{column, schema.Columns[column], data.ClassifyColumn(column, samples, threshold)})
			}
			printTable(tw)

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = name + ".schema.json"
			}
			if err := data.SaveSchema(out, schema); err != nil {
				return err
			}
			slog.Info("stored schema", "file", out, "columns", len(schema.Columns), "records", len(records))
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Where to store the schema. Defaults to <name>.schema.json")
	cmd.Flags().Float64("piiThreshold", 0.5, "Share of samples between 0 and 1 that must look like personal data")
	return cmd
}

func newDriftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drift <baseline> <records>",
		Short:   "Compare records against a stored schema",
		Example: `  devkit data drift schemas/users.json exports/users.csv --threshold 10`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseline, err := data.LoadSchema(args[0])
			if err != nil {
				return err
			}
			records, err := data.LoadRecords(args[1])
			if err != nil {
				return err
			}
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			drift := data.CompareSchemas(baseline, data.InferSchema(baseline.Name, records), threshold)

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if err := printJSON(drift); err != nil {
					return err
				}
			} else {
				tw := newTable("Column", "Change")
				for _, c := range drift.Added {
					tw.AppendRow([]any{c, "added"})
				}
				for _, c := range drift.Removed {
					tw.AppendRow([]any{c, "removed"})
				}
				for _, c := range drift.Changed {
					tw.AppendRow([]any{c.Column, c.From + " -> " + c.To})
				}
				printTable(tw)
			}

			if drift.Exceeded {
				return fmt.Errorf("schema drift of %.1f%% exceeds %.1f%%", drift.DriftPercent, threshold)
			}
			slog.Info("schema drift within threshold", "drift", fmt.Sprintf("%.1f%%", drift.DriftPercent))
			return nil
		},
	}
	cmd.Flags().Float64("threshold", 0, "The allowed drift in percent of the baseline columns")
	cmd.Flags().Bool("json", false, "Print the drift as json")
	return cmd
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema> <document>",
		Short: "Validate a json document against a json schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			violations, err := data.ValidateJSONDocument(args[0], args[1])
			if err != nil {
				return err
			}
			return printViolations(args[1], violations)
		},
	}
}
