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
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/l3montree-dev/devkit/operations"
)

func NewOpsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Local environment, health checks and infrastructure",
	}
	cmd.AddCommand(
		newHealthCommand(),
		newPortsCommand(),
		newComposeCommand(),
		newEnvCommand(),
		newBootstrapCommand(),
		newTerraformCommand(),
		newDoctorCommand(),
	)
	return cmd
}

func newHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe http health endpoints",
		Long: `Probes http health endpoints. Targets are given as name=url or read from a json
file:

  [{"name": "api", "url": "http://localhost:8080/healthz", "expectedStatus": 200, "timeout": "2s"}]

With --wait every target is polled until it is healthy or the timeout is reached.`,
		Example: `  devkit ops health --target api=http://localhost:8080/healthz
  devkit ops health --file health.json --wait --timeout 120`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var targets []operations.HealthTarget
			if file, _ := cmd.Flags().GetString("file"); file != "" {
				loaded, err := operations.LoadHealthTargets(file)
				if err != nil {
					return err
				}
				targets = append(targets, loaded...)
			}
			raw, _ := cmd.Flags().GetStringArray("target")
			for _, r := range raw {
				t, err := operations.ParseHealthTarget(r)
				if err != nil {
					return err
				}
				targets = append(targets, t)
			}
			if len(targets) == 0 {
				return errors.New("no targets given, use --target or --file")
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			var results []operations.HealthResult
			if wait, _ := cmd.Flags().GetBool("wait"); wait {
				interval, _ := cmd.Flags().GetDuration("interval")
				for _, t := range targets {
					res, err := withSpinner("waiting for "+t.Name, func() (operations.HealthResult, error) {
						return operations.WaitHealthy(ctx, nil, t, interval)
					})
					results = append(results, res)
					if err != nil {
						printHealthResults(results)
						return err
					}
				}
			} else {
				results = operations.CheckHealth(ctx, nil, targets)
			}
			printHealthResults(results)

			unhealthy := 0
			for _, r := range results {
				if !r.Healthy {
					unhealthy++
				}
			}
			if unhealthy > 0 {
				return fmt.Errorf("%d of %d targets are unhealthy", unhealthy, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringArray("target", nil, "name=url, can be repeated")
	cmd.Flags().StringP("file", "f", "", "A json file with targets")
	cmd.Flags().Bool("wait", false, "Poll until every target is healthy")
	cmd.Flags().Duration("interval", 2*time.Second, "The poll interval used with --wait")
	return cmd
}

func printHealthResults(results []operations.HealthResult) {
	tw := newTable("Name", "URL", "Status", "Code", "Latency", "Error")
	for _, r := range results {
		tw.AppendRow([]any{r.Name, r.URL, statusText(r.Healthy), r.StatusCode, r.Latency.Round(time.Millisecond), r.Error})
	}
	printTable(tw)
}

func newPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports <file>",
		Short: "Check a service to port map for conflicts and ports already in use",
		Long: `Checks a json map of service names to ports, e.g. {"api": 8080, "web": 3000},
for ports used twice and for ports another process already listens on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := operations.ReadPortMap(args[0])
			if err != nil {
				return err
			}

			statuses := operations.CheckPorts(m)
			tw := newTable("Service", "Port", "Free", "Error")
			busy := 0
			for _, s := range statuses {
				if !s.Free {
					busy++
				}
				tw.AppendRow([]any{s.Service, s.Port, statusText(s.Free), s.Error})
			}
			printTable(tw)

			conflicts := operations.PortConflicts(m)
			for _, c := range conflicts {
				slog.Error("port conflict", "port", c.Port, "services", strings.Join(c.Services, ", "))
			}
			if len(conflicts) > 0 || busy > 0 {
				return fmt.Errorf("%d conflicts, %d ports in use", len(conflicts), busy)
			}
			return nil
		},
	}
}

func newComposeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose [file]",
		Short: "Validate a docker compose file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(projectPath(), "docker-compose.yml")
			if len(args) == 1 {
				path = args[0]
			}
			file, err := operations.ParseCompose(path)
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("writePorts"); out != "" {
				if err := operations.WritePortMap(out, operations.ComposePortMap(file)); err != nil {
					return err
				}
				slog.Info("wrote port map", "file", out)
			}
			return printViolations(path, operations.ValidateCompose(file))
		},
	}
	cmd.Flags().String("writePorts", "", "Write the published host ports as a port map")
	return cmd
}

func newEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Keep .env and .env.example in sync",
	}

	exampleCmd := &cobra.Command{
		Use:   "example",
		Short: "Write .env.example with the keys of .env. Values are dropped unless kept with --keep.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keep, _ := cmd.Flags().GetStringSlice("keep")
			envPath := filepath.Join(projectPath(), ".env")
			examplePath := filepath.Join(projectPath(), ".env.example")

			keys, err := operations.GenerateEnvExample(envPath, examplePath, keep)
			if err != nil {
				return err
			}
			slog.Info("wrote env example", "file", examplePath, "keys", len(keys))
			return nil
		},
	}
	exampleCmd.Flags().StringSlice("keep", nil, "Keys whose value is copied, e.g. non secret defaults")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Fail if .env lacks a key of .env.example",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			missing, err := operations.MissingEnvKeys(filepath.Join(projectPath(), ".env"), filepath.Join(projectPath(), ".env.example"))
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf(".env is missing %s", strings.Join(missing, ", "))
			}
			slog.Info(".env has every key of .env.example")
			return nil
		},
	}

	cmd.AddCommand(exampleCmd, checkCmd)
	return cmd
}

func newBootstrapCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Prepare a fresh checkout: check tools, create .env and install dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := operations.BootstrapOptions{Dir: projectPath()}
			opts.RequiredTools, _ = cmd.Flags().GetStringSlice("tools")
			opts.Install, _ = cmd.Flags().GetBool("install")
			noEnv, _ := cmd.Flags().GetBool("noEnv")
			opts.CopyEnv = !noEnv
			pm, err := packageManager()
			if err != nil {
				return err
			}
			opts.PackageManager = pm

			ctx, cancel := commandContext(cmd)
			defer cancel()
			report, err := withSpinner("bootstrapping", func() (operations.BootstrapReport, error) {
				return operations.Bootstrap(ctx, opts)
			})
			if err != nil {
				return err
			}
			slog.Info("bootstrap finished", "envCreated", report.EnvCreated, "installed", report.Installed)
			return nil
		},
	}
	cmd.Flags().StringSlice("tools", []string{"git", "node"}, "Tools that must be installed")
	cmd.Flags().Bool("install", true, "Install the dependencies")
	cmd.Flags().Bool("noEnv", false, "Do not create .env from .env.example")
	addPackageManagerFlag(cmd)
	return cmd
}

func newTerraformCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terraform",
		Short: "Format, validate and plan terraform code",
	}

	dirOf := func(args []string) string {
		if len(args) == 1 {
			return args[0]
		}
		return projectPath()
	}

	fmtCmd := &cobra.Command{
		Use:   "fmt [dir]",
		Short: "Format the terraform files, with --check only list them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, _ := cmd.Flags().GetBool("check")
			ctx, cancel := commandContext(cmd)
			defer cancel()

			files, err := operations.TerraformFmt(ctx, dirOf(args), check)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Println(f)
			}
			if check && len(files) > 0 {
				return fmt.Errorf("%d files are not formatted", len(files))
			}
			return nil
		},
	}
	fmtCmd.Flags().Bool("check", false, "Only list unformatted files and fail if there are any")

	validateCmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate the configuration without a backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			res, err := withSpinner("validating", func() (operations.ValidateResult, error) {
				return operations.TerraformValidate(ctx, dirOf(args))
			})
			if err != nil {
				return err
			}
			if len(res.Diagnostics) > 0 {
				tw := newTable("Severity", "Location", "Summary")
				for _, d := range res.Diagnostics {
					tw.AppendRow([]any{severityText(d.Severity), d.Location(), d.Summary})
				}
				printTable(tw)
			}
			if !res.Valid {
				return fmt.Errorf("configuration is invalid: %d errors", res.ErrorCount)
			}
			slog.Info("configuration is valid", "warnings", res.WarningCount)
			return nil
		},
	}

	planCmd := &cobra.Command{
		Use:   "plan [dir]",
		Short: "Create a plan and report whether it changes anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			ctx, cancel := commandContext(cmd)
			defer cancel()

			res, err := withSpinner("planning", func() (operations.PlanResult, error) {
				return operations.TerraformPlan(ctx, dirOf(args), out)
			})
			if err != nil {
				return err
			}
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Print(res.Output)
			}
			slog.Info("plan finished", "changes", res.HasChanges, "planFile", res.PlanFile)
			if failOnChanges, _ := cmd.Flags().GetBool("detectDrift"); failOnChanges && res.HasChanges {
				return errors.New("infrastructure drifted from the configuration")
			}
			return nil
		},
	}
	planCmd.Flags().String("out", "", "Write the plan to a file")
	planCmd.Flags().Bool("verbose", false, "Print the plan output")
	planCmd.Flags().Bool("detectDrift", false, "Fail if the plan has changes")

	cmd.AddCommand(fmtCmd, validateCmd, planCmd)
	return cmd
}

func newDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Print the versions of the tools devkit shells out to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, _ := cmd.Flags().GetStringSlice("tools")
			ctx, cancel := commandContext(cmd)
			defer cancel()

			versions := operations.ToolVersions(ctx, tools)
			tw := newTable("Tool", "Installed", "Version")
			for _, v := range versions {
				tw.AppendRow([]any{v.Tool, statusText(!v.Missing), v.Version})
			}
			printTable(tw)
			return nil
		},
	}
	cmd.Flags().StringSlice("tools", operations.DefaultDoctorTools, "The tools to check")
	return cmd
}
