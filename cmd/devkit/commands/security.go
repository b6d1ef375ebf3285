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
	"slices"
	"strings"

	cyclonedx "github.com/CycloneDX/cyclonedx-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/l3montree-dev/devkit/cmd/devkit/config"
	"github.com/l3montree-dev/devkit/security"
)

func NewSecurityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Secret scanning, SBOMs, signatures and policies",
	}
	cmd.AddCommand(
		newSecretsCommand(),
		newSBOMCommand(),
		newSBOMSummaryCommand(),
		newMergeSBOMsCommand(),
		newSignCommand(),
		newVerifyCommand(),
		newPolicyCommand(),
		newLoginCommand(),
	)
	return cmd
}

func newSecretsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Scan the project for leaked secrets",
		Long: `Scans the project with gitleaks, trufflehog or both. Secrets are redacted in
the output. The command fails if any scanner reports a finding.`,
		Example: `  devkit security secrets
  devkit security secrets --scanner all --history`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, _ := cmd.Flags().GetString("scanner")
			history, _ := cmd.Flags().GetBool("history")
			gitleaksConfig, _ := cmd.Flags().GetString("gitleaksConfig")
			baseline, _ := cmd.Flags().GetString("baseline")
			onlyVerified, _ := cmd.Flags().GetBool("onlyVerified")

			if !slices.Contains([]string{"gitleaks", "trufflehog", "all"}, scanner) {
				return fmt.Errorf("unsupported scanner %s, use gitleaks, trufflehog or all", scanner)
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			var results []security.ScanResult
			if scanner == "gitleaks" || scanner == "all" {
				mode := "dir"
				if history {
					mode = "git"
				}
				res, err := withSpinner("running gitleaks", func() (security.ScanResult, error) {
					return security.RunGitleaks(ctx, security.GitleaksOptions{Path: projectPath(), Mode: mode, Config: gitleaksConfig, Baseline: baseline})
				})
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			if scanner == "trufflehog" || scanner == "all" {
				mode := "filesystem"
				if history {
					mode = "git"
				}
				res, err := withSpinner("running trufflehog", func() (security.ScanResult, error) {
					return security.RunTrufflehog(ctx, security.TrufflehogOptions{Path: projectPath(), Mode: mode, OnlyVerified: onlyVerified})
				})
				if err != nil {
					return err
				}
				results = append(results, res)
			}

			report := security.MergeScanResults(results...)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if err := printJSON(report); err != nil {
					return err
				}
			} else if report.Total > 0 {
				tw := newTable("Scanner", "Rule", "File", "Line", "Secret", "Verified")
				for _, r := range report.Results {
					for _, f := range r.Findings {
						tw.AppendRow([]any{f.Scanner, f.RuleID, f.File, f.Line, f.Secret, f.Verified})
					}
				}
				printTable(tw)
			}

			if !report.Passed {
				return fmt.Errorf("found %d secrets", report.Total)
			}
			slog.Info("no secrets found")
			return nil
		},
	}
	cmd.Flags().String("scanner", "gitleaks", "The scanner to use: gitleaks, trufflehog or all")
	cmd.Flags().Bool("history", false, "Scan the git history instead of the working tree")
	cmd.Flags().String("gitleaksConfig", "", "Path to a gitleaks config")
	cmd.Flags().String("baseline", "", "Path to a gitleaks baseline report, known findings are ignored")
	cmd.Flags().Bool("onlyVerified", false, "Only report secrets trufflehog could verify")
	cmd.Flags().Bool("json", false, "Print the report as json")
	return cmd
}

func newSBOMCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sbom [path]",
		Short:   "Generate a CycloneDX SBOM",
		Example: `  devkit security sbom . --tool syft --output sbom.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := projectPath()
			if len(args) == 1 {
				path = args[0]
			}
			tool, _ := cmd.Flags().GetString("tool")
			output, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("format")

			ctx, cancel := commandContext(cmd)
			defer cancel()
			written, err := withSpinner("generating sbom", func() (string, error) {
				return security.GenerateSBOM(ctx, security.SBOMOptions{Tool: tool, Path: path, Output: output, Format: format})
			})
			if err != nil {
				return err
			}

			bom, err := security.ReadSBOM(written)
			if err != nil {
				return err
			}
			summary := security.SummarizeSBOM(bom)
			slog.Info("sbom written", "file", written, "components", summary.Components, "licenses", summary.Licenses)
			return nil
		},
	}
	cmd.Flags().String("tool", "syft", "The generator: syft or cdxgen")
	cmd.Flags().StringP("output", "o", "", "The output file. Defaults to sbom.<format>")
	cmd.Flags().String("format", "json", "json or xml")
	return cmd
}

func newSBOMSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sbom-summary <file>",
		Short: "Count the components of an SBOM per ecosystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bom, err := security.ReadSBOM(args[0])
			if err != nil {
				return err
			}
			summary := security.SummarizeSBOM(bom)

			ecosystems := make([]string, 0, len(summary.Ecosystems))
			for e := range summary.Ecosystems {
				ecosystems = append(ecosystems, e)
			}
			slices.Sort(ecosystems)

			tw := newTable("Ecosystem", "Components")
			for _, e := range ecosystems {
				tw.AppendRow([]any{e, summary.Ecosystems[e]})
			}
			tw.AppendFooter([]any{"total", summary.Components})
			printTable(tw)
			fmt.Printf("spec version %s, %d distinct licenses\n", summary.SpecVersion, summary.Licenses)
			return nil
		},
	}
}

func newMergeSBOMsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge-sboms <config.json>",
		Short: "Merge several SBOMs into one",
		Long: `Merges several SBOMs into one. The config file names the purl of the merged
root component and the files to merge:

  {"purl": "pkg:npm/my-app@1.0.0", "sboms": ["api.json", "web.json"]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bom, err := security.MergeSBOMFiles(args[0])
			if err != nil {
				return err
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				return security.WriteSBOM(os.Stdout, bom, cyclonedx.BOMFileFormatJSON)
			}
			format := cyclonedx.BOMFileFormatJSON
			if strings.EqualFold(filepath.Ext(output), ".xml") {
				format = cyclonedx.BOMFileFormatXML
			}
			f, err := os.Create(output)
			if err != nil {
				return errors.Wrap(err, "could not create output file")
			}
			defer f.Close()
			if err := security.WriteSBOM(f, bom, format); err != nil {
				return err
			}
			slog.Info("merged sboms", "output", output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write the merged SBOM to a file instead of stdout")
	return cmd
}

func newSignCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <file|image>",
		Short: "Sign a file or a container image",
		Long: `Signs a file or a container image.

  cosign  signs files with sign-blob and images by digest (--image)
  gpg     creates a detached signature with the gpg binary
  pgp     signs with an armored private key, no gpg installation needed

The key password is read from --password or DEVKIT_PASSWORD.`,
		Example: `  devkit security sign dist/app.tar.gz --key cosign.key
  devkit security sign ghcr.io/org/app:1.0.0 --image --key cosign.key
  devkit security sign dist/app.tar.gz --method gpg --keyId 0xDEADBEEF`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, _ := cmd.Flags().GetString("method")
			key, _ := cmd.Flags().GetString("key")
			keyID, _ := cmd.Flags().GetString("keyId")
			output, _ := cmd.Flags().GetString("output")
			image, _ := cmd.Flags().GetBool("image")
			password := config.RuntimeBaseConfig.Password

			ctx, cancel := commandContext(cmd)
			defer cancel()

			switch method {
			case "cosign":
				opts := security.CosignOptions{
					Key:             key,
					OutputSignature: output,
					TlogUpload:      !config.RuntimeBaseConfig.Offline,
					Password:        password,
				}
				if image {
					opts.Image = args[0]
					_, err := security.SignImage(ctx, opts)
					return err
				}
				opts.File = args[0]
				_, err := security.SignBlob(ctx, opts)
				return err
			case "gpg":
				armor, _ := cmd.Flags().GetBool("armor")
				sig, err := security.SignWithGPG(ctx, security.GPGOptions{KeyID: keyID, File: args[0], Output: output, Armor: armor})
				if err != nil {
					return err
				}
				slog.Info("signed file", "file", args[0], "signature", sig)
				return nil
			case "pgp":
				if key == "" {
					return errors.New("--key must point to an armored private key")
				}
				armored, err := os.ReadFile(key)
				if err != nil {
					return errors.Wrap(err, "could not read key")
				}
				data, err := os.ReadFile(args[0])
				if err != nil {
					return errors.Wrap(err, "could not read file")
				}
				sig, err := security.SignWithPGPKey(string(armored), []byte(password), data)
				if err != nil {
					return err
				}
				if output == "" {
					output = args[0] + ".asc"
				}
				if err := os.WriteFile(output, sig, 0o644); err != nil {
					return errors.Wrap(err, "could not write signature")
				}
				slog.Info("signed file", "file", args[0], "signature", output)
				return nil
			}
			return fmt.Errorf("unsupported signing method %s, use cosign, gpg or pgp", method)
		},
	}
	cmd.Flags().String("method", "cosign", "cosign, gpg or pgp")
	cmd.Flags().StringP("key", "k", "", "The private key file (cosign, pgp)")
	cmd.Flags().String("keyId", "", "The gpg key to sign with. Defaults to the default key of gpg.")
	cmd.Flags().StringP("output", "o", "", "Where to write the signature")
	cmd.Flags().Bool("image", false, "Treat the argument as an image reference (cosign only)")
	cmd.Flags().Bool("armor", true, "Write an armored signature (gpg only)")
	cmd.Flags().StringP("password", "p", "", "The password of the key")
	cmd.Flags().Bool("offline", false, "Do not upload the signature to the transparency log (cosign only)")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <file|image>",
		Short: "Verify a signature",
		Example: `  devkit security verify dist/app.tar.gz --key cosign.pub --signature dist/app.tar.gz.sig
  devkit security verify dist/app.tar.gz --method pgp --key release.asc
  devkit security verify ghcr.io/org/app:1.0.0 --image`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, _ := cmd.Flags().GetString("method")
			keyPath, _ := cmd.Flags().GetString("key")
			sigPath, _ := cmd.Flags().GetString("signature")
			image, _ := cmd.Flags().GetBool("image")

			ctx, cancel := commandContext(cmd)
			defer cancel()

			if image {
				count, err := security.ImageSignatureCount(ctx, args[0])
				if err != nil {
					return err
				}
				if count == 0 {
					return fmt.Errorf("image %s is not signed", args[0])
				}
				slog.Info("image is signed", "image", args[0], "signatures", count)
				return nil
			}

			if keyPath == "" {
				return errors.New("--key is required")
			}
			key, err := os.ReadFile(keyPath)
			if err != nil {
				return errors.Wrap(err, "could not read key")
			}

			switch method {
			case "cosign":
				if sigPath == "" {
					sigPath = args[0] + ".sig"
				}
				err = security.VerifyBlob(ctx, key, args[0], sigPath)
			case "pgp":
				if sigPath == "" {
					sigPath = args[0] + ".asc"
				}
				var data, sig []byte
				if data, err = os.ReadFile(args[0]); err != nil {
					return errors.Wrap(err, "could not read file")
				}
				if sig, err = os.ReadFile(sigPath); err != nil {
					return errors.Wrap(err, "could not read signature")
				}
				err = security.VerifyPGPSignature(string(key), data, sig)
			default:
				return fmt.Errorf("unsupported method %s, use cosign or pgp", method)
			}
			if err != nil {
				return err
			}
			slog.Info("signature is valid", "file", args[0], "signature", sigPath)
			return nil
		},
	}
	cmd.Flags().String("method", "cosign", "cosign or pgp")
	cmd.Flags().StringP("key", "k", "", "The public key file")
	cmd.Flags().StringP("signature", "s", "", "The signature file. Defaults to <file>.sig (cosign) or <file>.asc (pgp).")
	cmd.Flags().Bool("image", false, "Check that the image has at least one cosign signature")
	return cmd
}

func newPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy <files...>",
		Short: "Check configuration files against rego policies",
		Long: `Checks configuration files against rego policies. The conftest engine shells out
to conftest, the opa engine evaluates the policies in process. Each file is
parsed as yaml or json and passed as input.`,
		Example: `  devkit security policy k8s/*.yaml --policy policy
  devkit security policy docker-compose.yaml --engine opa --policy policy --query data.compose.deny`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _ := cmd.Flags().GetString("engine")
			policy, _ := cmd.Flags().GetString("policy")
			namespace, _ := cmd.Flags().GetString("namespace")
			query, _ := cmd.Flags().GetString("query")

			ctx, cancel := commandContext(cmd)
			defer cancel()

			var result security.PolicyResult
			switch engine {
			case "conftest":
				var err error
				result, err = security.RunConftest(ctx, security.ConftestOptions{Policy: policy, Namespace: namespace, Files: args})
				if err != nil {
					return err
				}
			case "opa":
				var violations, warnings []string
				for _, file := range args {
					content, err := os.ReadFile(file)
					if err != nil {
						return errors.Wrapf(err, "could not read %s", file)
					}
					var input any
					if err := yaml.Unmarshal(content, &input); err != nil {
						return errors.Wrapf(err, "could not parse %s", file)
					}
					res, err := security.EvaluateRego(ctx, security.RegoOptions{Paths: []string{policy}, Query: query, Input: input})
					if err != nil {
						return err
					}
					for _, v := range res.Violations {
						violations = append(violations, file+": "+v)
					}
					for _, w := range res.Warnings {
						warnings = append(warnings, file+": "+w)
					}
				}
				result = security.PolicyResult{Passed: len(violations) == 0, Violations: violations, Warnings: warnings}
			default:
				return fmt.Errorf("unsupported engine %s, use conftest or opa", engine)
			}

			for _, w := range result.Warnings {
				slog.Warn("policy warning", "msg", w)
			}
			for _, v := range result.Violations {
				slog.Error("policy violation", "msg", v)
			}
			if !result.Passed {
				return fmt.Errorf("found %d policy violations", len(result.Violations))
			}
			slog.Info("all policies passed", "files", len(args))
			return nil
		},
	}
	cmd.Flags().String("engine", "conftest", "conftest or opa")
	cmd.Flags().String("policy", "policy", "The directory with the rego policies")
	cmd.Flags().String("namespace", "", "The conftest namespace. Defaults to main.")
	cmd.Flags().String("query", "", "The rego query for the opa engine. Defaults to data.main.deny.")
	return cmd
}

func newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a container registry",
		Long: `Verifies the credentials against the registry and stores them in the docker
credential store, so docker, cosign and syft pick them up.`,
		Example: `  DEVKIT_PASSWORD=$TOKEN devkit security login --registry ghcr.io --username ci-bot`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.RuntimeBaseConfig
			registry := strings.TrimSuffix(cfg.Registry, "/")

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := security.RegistryLogin(ctx, cfg.Username, cfg.Password, registry); err != nil {
				return err
			}
			slog.Info("logged in", "registry", registry, "username", cfg.Username)
			return nil
		},
	}
	cmd.Flags().String("registry", "", "The registry to log in to")
	cmd.Flags().StringP("username", "u", "", "The username")
	cmd.Flags().StringP("password", "p", "", "The password or token")
	return cmd
}
