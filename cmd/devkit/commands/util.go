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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/l3montree-dev/devkit/cmd/devkit/config"
	"github.com/l3montree-dev/devkit/deps"
)

// commandContext bounds the command by the configured timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, config.RuntimeBaseConfig.TimeoutDuration())
}

func stderrIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// withSpinner shows a spinner on stderr while fn runs. Nothing is drawn when stderr is no terminal.
func withSpinner[T any](suffix string, fn func() (T, error)) (T, error) {
	if !stderrIsTerminal() {
		return fn()
	}
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	defer s.Stop()
	return fn()
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetAllowedRowLength(160)
	tw.AppendHeader(header)
	return tw
}

func printTable(tw table.Writer) {
	fmt.Println(tw.Render())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusText(ok bool) string {
	if ok {
		return text.FgGreen.Sprint("ok")
	}
	return text.FgRed.Sprint("failed")
}

func severityText(severity string) string {
	switch severity {
	case "critical":
		return text.FgHiRed.Sprint(severity)
	case "high":
		return text.FgRed.Sprint(severity)
	case "moderate", "medium":
		return text.FgYellow.Sprint(severity)
	}
	return severity
}

func projectPath() string {
	return config.RuntimeBaseConfig.Path
}

func packageManager() (deps.PackageManager, error) {
	return deps.ResolvePackageManager(projectPath(), config.RuntimeBaseConfig.PackageManager)
}

func addPackageManagerFlag(cmd *cobra.Command) {
	cmd.Flags().String("packageManager", "", "The package manager to use: npm, pnpm or yarn. Detected from the lock file when empty.")
}
