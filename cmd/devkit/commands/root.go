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
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/l3montree-dev/devkit/cmd/devkit/config"
	"github.com/l3montree-dev/devkit/gitutil"
	"github.com/l3montree-dev/devkit/utils"
)

var cfgFile string

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

const (
	defaultConfigFilename = ".devkit"
)

var RootCmd = &cobra.Command{
	SilenceUsage:      true,
	Use:               "devkit",
	Short:             "Utilities for the whole development lifecycle",
	Version:           version,
	DisableAutoGenTag: true,
	Long: `Utilities for the whole development lifecycle

devkit wraps the tools a project touches between the first commit and the
rollout: commit and branch linting, dependency audits, license checks, secret
scanning, SBOMs, signing, release automation, health checks and bulk operations
over many repositories. Configuration can be provided via a ./.devkit config
file or environment variables (prefix DEVKIT_).`,
	Example: `  # Fail the build on high severity advisories
  devkit deps audit --failOn high

  # Lint the commit message git is about to record
  devkit git commit-lint --file .git/COMMIT_EDITMSG

  # Scan the working tree for secrets
  devkit security secrets --scanner gitleaks

  # Pull every repository below ~/src
  devkit bulk run --root ~/src --command "git pull"`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := cmd.Flags().GetString("logLevel")
		if err != nil {
			return err
		}

		switch level {
		case "debug":
			initLogger(slog.LevelDebug)
		case "info":
			initLogger(slog.LevelInfo)
		case "warn":
			initLogger(slog.LevelWarn)
		case "error":
			initLogger(slog.LevelError)
		default:
			initLogger(slog.LevelInfo)
		}

		// a missing .env file is fine
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not load .env file", "err", err)
		}

		if utils.RunsInCI() {
			slog.Debug("Running in CI")
			err := gitutil.Lister.MarkAllPathsAsSafe()
			if err != nil {
				slog.Debug("could not mark all paths as safe", "err", err)
			}
		}

		return initializeConfig(cmd)
	},
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("devkit\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Built:      %s\n", date)
			fmt.Printf("Built by:   %s\n", builtBy)
		},
	}

	RootCmd.AddCommand(
		versionCmd,
		NewDepsCommand(),
		NewGitCommand(),
		NewLintCommand(),
		NewSecurityCommand(),
		NewReleaseCommand(),
		NewOpsCommand(),
		NewBulkCommand(),
		NewAICommand(),
		NewDataCommand(),
	)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file. Defaults to ./.devkit.{yaml,json,toml}")
	RootCmd.PersistentFlags().StringP("logLevel", "l", "info", "Set the log level. Options: debug, info, warn, error")
	RootCmd.PersistentFlags().String("path", ".", "The path to the project. Defaults to the current directory.")
	RootCmd.PersistentFlags().Int("timeout", 300, "Timeout in seconds for external tools")
}

// initLogger installs a tint handler on stderr, stdout is reserved for results.
func initLogger(level slog.Leveler) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(defaultConfigFilename)
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/devkit/")
	// a missing config file is fine, a broken one is not
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		slog.Debug("no config file found")
	}

	viper.SetEnvPrefix("DEVKIT")
	// Environment variables can't have dashes in them, so bind them to their equivalent
	// keys with underscores, e.g. --fail-on to DEVKIT_FAIL_ON
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	bindFlags(cmd)

	return config.ParseBaseConfig()
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		configName := f.Name

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && viper.IsSet(configName) {
			cmd.Flags().Set(f.Name, flagValue(viper.Get(configName))) // nolint: errcheck
		}

		if err := viper.BindPFlag(configName, f); err != nil {
			slog.Error("could not bind flag to viper", "err", err)
		}
	})
}

// flagValue renders config lists the way slice flags parse them.
func flagValue(val any) string {
	if list, ok := val.([]any); ok {
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("%v", val)
}
