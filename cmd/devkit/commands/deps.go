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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/l3montree-dev/devkit/cmd/devkit/config"
	"github.com/l3montree-dev/devkit/deps"
	"github.com/l3montree-dev/devkit/licenses"
)

func NewDepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Audit, update and license check npm dependencies",
	}
	cmd.AddCommand(
		newDepsAuditCommand(),
		newDepsOutdatedCommand(),
		newDepsLicensesCommand(),
		newDepsNpmrcCommand(),
		newDepsTokenCommand(),
	)
	return cmd
}

func newDepsAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit the dependencies for known vulnerabilities",
		Long: `Runs the audit of the package manager and prints every advisory.

The command fails when an advisory is at or above the --failOn severity.`,
		Example: `  devkit deps audit --failOn high
  devkit deps audit --packageManager pnpm --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := deps.ParseSeverity(config.RuntimeBaseConfig.FailOn)
			if err != nil {
				return err
			}
			pm, err := packageManager()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			summary, err := withSpinner("auditing dependencies", func() (deps.AuditSummary, error) {
				return deps.Audit(ctx, projectPath(), pm)
			})
			if err != nil {
				slog.Error("audit failed", "err", err)
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if err := printJSON(summary); err != nil {
					return err
				}
			} else if len(summary.Advisories) > 0 {
				tw := newTable("Package", "Severity", "CVSS", "Title", "Range", "Fix")
				for _, a := range summary.Advisories {
					tw.AppendRow([]any{a.Name, severityText(string(a.Severity)), a.CVSSScore, a.Title, a.VulnerableRange, a.FixAvailable})
				}
				printTable(tw)
			}

			slog.Info("audit finished", "advisories", summary.Total(), "critical", summary.Counts[deps.SeverityCritical], "high", summary.Counts[deps.SeverityHigh])
			if summary.Exceeds(threshold) {
				return fmt.Errorf("found advisories at or above %s severity", threshold)
			}
			return nil
		},
	}
	cmd.Flags().String("failOn", "critical", "The severity to fail on: info, low, moderate, high or critical")
	cmd.Flags().Bool("json", false, "Print the summary as json")
	addPackageManagerFlag(cmd)
	return cmd
}

func newDepsOutdatedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outdated",
		Short: "List dependencies with newer versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, err := packageManager()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			pkgs, err := withSpinner("checking for updates", func() ([]deps.OutdatedPackage, error) {
				return deps.Outdated(ctx, projectPath(), pm)
			})
			if err != nil {
				return err
			}
			if len(pkgs) == 0 {
				slog.Info("all dependencies are up to date")
				return nil
			}

			tw := newTable("Package", "Current", "Wanted", "Latest", "Update")
			for _, p := range pkgs {
				tw.AppendRow([]any{p.Name, p.Current, p.Wanted, p.Latest, p.Bump})
			}
			printTable(tw)
			return nil
		},
	}
	addPackageManagerFlag(cmd)
	return cmd
}

func newDepsLicensesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "licenses",
		Short: "Check the licenses of all dependencies against a policy",
		Long: `Collects the license of every installed dependency and checks it against the
allow and block lists. The lists can also be set in the config file:

  licenses:
    allow: [MIT, ISC, Apache-2.0]
    block: [GPL-3.0-only]`,
		Example: `  devkit deps licenses --allow MIT,ISC,Apache-2.0 --block GPL-3.0-only`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var policy licenses.Policy
			if err := viper.UnmarshalKey("licenses", &policy); err != nil {
				return errors.Wrap(err, "could not read license policy")
			}
			if cmd.Flags().Changed("allow") {
				policy.Allow, _ = cmd.Flags().GetStringSlice("allow")
			}
			if cmd.Flags().Changed("block") {
				policy.Block, _ = cmd.Flags().GetStringSlice("block")
			}

			pm, err := packageManager()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			pkgs, err := withSpinner("collecting licenses", func() ([]licenses.PackageLicense, error) {
				return deps.CollectLicenses(ctx, projectPath(), pm)
			})
			if err != nil {
				return err
			}

			res := licenses.Check(pkgs, policy)
			if showAll, _ := cmd.Flags().GetBool("all"); showAll {
				tw := newTable("Package", "Version", "License")
				for _, p := range pkgs {
					tw.AppendRow([]any{p.Name, p.Version, p.License})
				}
				printTable(tw)
			}
			for _, v := range res.Violations {
				slog.Error("license violation", "violation", v)
			}
			slog.Info("license check finished", "packages", len(pkgs), "violations", len(res.Violations))
			if !res.Passed {
				return fmt.Errorf("found %d license violations", len(res.Violations))
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("allow", nil, "SPDX identifiers that are allowed. Empty allows everything not blocked.")
	cmd.Flags().StringSlice("block", nil, "SPDX identifiers that are never allowed")
	cmd.Flags().Bool("all", false, "Print the license of every package")
	addPackageManagerFlag(cmd)
	return cmd
}

func newDepsNpmrcCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "npmrc",
		Short:   "Point a scope or the default registry to a private registry",
		Example: `  devkit deps npmrc --registry https://npm.pkg.github.com --scope @my-org --tokenEnv NPM_TOKEN`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			tokenEnv, _ := cmd.Flags().GetString("tokenEnv")
			registry := config.RuntimeBaseConfig.Registry
			if registry == "" {
				return errors.New("--registry is required")
			}

			path := filepath.Join(projectPath(), ".npmrc")
			if err := deps.ConfigureRegistry(path, deps.RegistryConfig{Registry: registry, Scope: scope, TokenEnv: tokenEnv}); err != nil {
				return err
			}
			slog.Info("configured registry", "registry", registry, "scope", scope, "file", path)
			return nil
		},
	}
	cmd.Flags().String("registry", "", "The registry url")
	cmd.Flags().String("scope", "", "The scope to configure, e.g. @my-org. Empty configures the default registry.")
	cmd.Flags().String("tokenEnv", "NPM_TOKEN", "The environment variable holding the auth token")
	return cmd
}

func newDepsTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage registry tokens in the keyring of the operating system",
	}

	setCmd := &cobra.Command{
		Use:   "set <registry>",
		Short: "Store a registry token. The token is read from --password or DEVKIT_PASSWORD.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := config.RuntimeBaseConfig.Password
			if token == "" {
				return errors.New("no token provided, use --password or DEVKIT_PASSWORD")
			}
			if err := deps.StoreRegistryToken(args[0], token); err != nil {
				return err
			}
			slog.Info("stored token", "registry", args[0])
			return nil
		},
	}
	setCmd.Flags().StringP("password", "p", "", "The token to store")

	getCmd := &cobra.Command{
		Use:   "get <registry>",
		Short: "Print a stored registry token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := deps.RegistryToken(args[0])
			if err != nil {
				return err
			}
			fmt.Print(token)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <registry>",
		Short: "Remove a stored registry token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.DeleteRegistryToken(args[0])
		},
	}

	cmd.AddCommand(setCmd, getCmd, deleteCmd)
	return cmd
}
