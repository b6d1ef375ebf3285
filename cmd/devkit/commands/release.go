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
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/l3montree-dev/devkit/gitutil"
	"github.com/l3montree-dev/devkit/normalize"
	"github.com/l3montree-dev/devkit/release"
	"github.com/l3montree-dev/devkit/security"
)

func NewReleaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Changesets, versions, changelogs and rollout guards",
	}
	cmd.AddCommand(
		newReleaseInitCommand(),
		newChangesetCommand(),
		newReleaseStatusCommand(),
		newReleaseVersionCommand(),
		newChangelogCommand(),
		newReleaseTagCommand(),
		newPublishCommand(),
		newGuardCommand(),
	)
	return cmd
}

type pendingRelease struct {
	LatestTag string
	Current   string
	Next      string
	Bump      normalize.Bump
	Commits   []gitutil.ConventionalCommit
}

// nextRelease reads the conventional commits since the latest semver tag.
func nextRelease(path string) (pendingRelease, error) {
	tags, err := gitutil.Lister.GetTags(path)
	if err != nil {
		return pendingRelease{}, errors.Wrap(err, "could not list tags")
	}
	res := pendingRelease{Current: "0.0.0"}
	if original, normalized, err := normalize.LatestSemverTag(tags); err == nil {
		res.LatestTag = original
		res.Current = normalized
	}

	res.Commits, err = gitutil.ConventionalCommitsSince(path, res.LatestTag)
	if err != nil {
		return pendingRelease{}, err
	}
	res.Next, res.Bump, err = release.NextVersion(res.Current, res.Commits)
	return res, err
}

func newReleaseInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the .changeset directory with a default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := release.DefaultChangesetConfig()
			cfg.BaseBranch, _ = cmd.Flags().GetString("baseBranch")
			cfg.Access, _ = cmd.Flags().GetString("access")

			created, err := release.InitChangesets(projectPath(), cfg)
			if err != nil {
				return err
			}
			if !created {
				slog.Info("changesets are already initialized")
				return nil
			}
			slog.Info("initialized changesets", "dir", filepath.Join(projectPath(), ".changeset"))
			return nil
		},
	}
	cmd.Flags().String("baseBranch", "main", "The branch releases are cut from")
	cmd.Flags().String("access", "restricted", "The npm access of published packages: public or restricted")
	return cmd
}

func newChangesetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "changeset",
		Short:   "Add a changeset",
		Example: `  devkit release changeset --bump @org/api=minor --bump @org/web=patch --summary "Add health endpoint"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _ := cmd.Flags().GetStringArray("bump")
			summary, _ := cmd.Flags().GetString("summary")

			releases, err := release.ParseReleases(pairs)
			if err != nil {
				return err
			}
			if _, err := release.ReadChangesetConfig(projectPath()); err != nil {
				return errors.Wrap(err, "changesets are not initialized, run devkit release init")
			}

			cs, err := release.WriteChangeset(projectPath(), release.Changeset{Releases: releases, Summary: summary})
			if err != nil {
				return err
			}
			slog.Info("added changeset", "id", cs.ID, "packages", len(cs.Releases))
			return nil
		},
	}
	cmd.Flags().StringArray("bump", nil, "<package>=<major|minor|patch>, can be repeated")
	cmd.Flags().String("summary", "", "What changed, this ends up in the changelog")
	return cmd
}

func newReleaseStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the pending changesets and the resulting bumps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changesets, err := release.ReadChangesets(projectPath())
			if err != nil {
				return err
			}
			if len(changesets) == 0 {
				slog.Info("no pending changesets")
				return nil
			}

			bumps := release.PendingBumps(changesets)
			pkgs := make([]string, 0, len(bumps))
			for p := range bumps {
				pkgs = append(pkgs, p)
			}
			slices.Sort(pkgs)

			tw := newTable("Package", "Bump")
			for _, p := range pkgs {
				tw.AppendRow([]any{p, bumps[p]})
			}
			printTable(tw)
			slog.Info("pending changesets", "count", len(changesets))
			return nil
		},
	}
}

func newReleaseVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Derive the next version from the conventional commits since the latest tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := nextRelease(projectPath())
			if err != nil {
				return err
			}
			if next.Bump == normalize.BumpNone {
				slog.Info("nothing to release", "version", next.Current, "commits", len(next.Commits))
				fmt.Println(next.Current)
				return nil
			}

			if write, _ := cmd.Flags().GetBool("write"); write {
				if err := release.SetPackageVersion(projectPath(), next.Next); err != nil {
					return err
				}
				slog.Info("updated package.json", "version", next.Next)
			}
			slog.Info("next version", "current", next.Current, "next", next.Next, "bump", next.Bump)
			fmt.Println(next.Next)
			return nil
		},
	}
	cmd.Flags().Bool("write", false, "Write the version into package.json")
	return cmd
}

func newChangelogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Render the changelog section of the next release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := nextRelease(projectPath())
			if err != nil {
				return err
			}
			if next.Bump == normalize.BumpNone {
				slog.Info("nothing to release")
				return nil
			}

			section := release.RenderChangelog(next.Next, time.Now(), next.Commits)
			if write, _ := cmd.Flags().GetBool("write"); write {
				path := filepath.Join(projectPath(), "CHANGELOG.md")
				if err := release.PrependChangelog(path, section); err != nil {
					return err
				}
				slog.Info("updated changelog", "file", path, "version", next.Next)
				return nil
			}
			fmt.Print(section)
			return nil
		},
	}
	cmd.Flags().Bool("write", false, "Prepend the section to CHANGELOG.md")
	return cmd
}

func newReleaseTagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag [version]",
		Short: "Create the release tag. Defaults to the next version.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var version string
			if len(args) == 1 {
				version = args[0]
			} else {
				next, err := nextRelease(projectPath())
				if err != nil {
					return err
				}
				if next.Bump == normalize.BumpNone {
					return errors.New("nothing to release since " + next.Current)
				}
				version = next.Next
			}

			clean, err := gitutil.Lister.IsClean(projectPath())
			if err != nil {
				return err
			}
			if !clean {
				return errors.New("working tree has uncommitted changes")
			}

			opts := release.TagOptions{}
			opts.Message, _ = cmd.Flags().GetString("message")
			opts.Sign, _ = cmd.Flags().GetBool("sign")
			opts.Push, _ = cmd.Flags().GetBool("push")
			opts.Remote, _ = cmd.Flags().GetString("remote")

			ctx, cancel := commandContext(cmd)
			defer cancel()
			tag, err := release.CreateReleaseTag(ctx, projectPath(), version, opts)
			if err != nil {
				return err
			}
			fmt.Println(tag)
			return nil
		},
	}
	cmd.Flags().StringP("message", "m", "", "The tag message. Defaults to Release v<version>.")
	cmd.Flags().Bool("sign", false, "Sign the tag with gpg")
	cmd.Flags().Bool("push", false, "Push the tag")
	cmd.Flags().String("remote", "origin", "The remote to push to")
	return cmd
}

func newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the package to the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, err := packageManager()
			if err != nil {
				return err
			}
			opts := release.PublishOptions{Dir: projectPath(), PackageManager: pm}
			opts.Tag, _ = cmd.Flags().GetString("tag")
			opts.Access, _ = cmd.Flags().GetString("access")
			opts.DryRun, _ = cmd.Flags().GetBool("dryRun")

			ctx, cancel := commandContext(cmd)
			defer cancel()
			res, err := withSpinner("publishing", func() (string, error) {
				r, err := release.Publish(ctx, opts)
				return r.Stdout, err
			})
			if err != nil {
				return err
			}
			fmt.Print(res)
			return nil
		},
	}
	cmd.Flags().String("tag", "", "The dist-tag, e.g. next")
	cmd.Flags().String("access", "", "public or restricted")
	cmd.Flags().Bool("dryRun", false, "Run the publish without uploading")
	addPackageManagerFlag(cmd)
	return cmd
}

// parseChecks reads "name=bool" pairs.
func parseChecks(pairs []string) (map[string]bool, error) {
	checks := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("invalid check %q, expected <name>=<true|false>", p)
		}
		passed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value for check %s", name)
		}
		checks[name] = passed
	}
	return checks, nil
}

func readFreezeWindows(path string) ([]release.FreezeWindow, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read freeze windows")
	}
	var windows []release.FreezeWindow
	if err := yaml.Unmarshal(content, &windows); err != nil {
		return nil, errors.Wrap(err, "could not parse freeze windows")
	}
	return windows, nil
}

func newGuardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guard",
		Short: "Decide whether the current state may be rolled out",
		Long: `Decides whether the current state may be rolled out. The built-in rules check
the branch, the working tree, the given checks, the error rate, freeze windows
and the image signature. Rego policies with a data.rollout.deny rule can add
further reasons. The command fails if any reason is found.

Freeze windows are read from a yaml file:

  - start: 2026-12-20T00:00:00Z
    end: 2027-01-02T00:00:00Z
    reason: holidays`,
		Example: `  devkit release guard --allowedBranches main,release/* --check ci=true --check e2e=true
  devkit release guard --errorRate 0.02 --maxErrorRate 0.01 --policy policy/rollout.rego`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checkPairs, _ := cmd.Flags().GetStringArray("check")
			checks, err := parseChecks(checkPairs)
			if err != nil {
				return err
			}
			freezeFile, _ := cmd.Flags().GetString("freezeFile")
			windows, err := readFreezeWindows(freezeFile)
			if err != nil {
				return err
			}

			branch, err := gitutil.Lister.GetBranchName(projectPath())
			if err != nil {
				return errors.Wrap(err, "could not get current branch")
			}
			clean, err := gitutil.Lister.IsClean(projectPath())
			if err != nil {
				return err
			}

			input := release.RolloutInput{
				Branch:           branch,
				WorkingTreeClean: clean,
				Checks:           checks,
				FreezeWindows:    windows,
				Now:              time.Now().UTC(),
			}
			input.AllowedBranches, _ = cmd.Flags().GetStringSlice("allowedBranches")
			input.ErrorRate, _ = cmd.Flags().GetFloat64("errorRate")
			input.MaxErrorRate, _ = cmd.Flags().GetFloat64("maxErrorRate")

			ctx, cancel := commandContext(cmd)
			defer cancel()

			if image, _ := cmd.Flags().GetString("image"); image != "" {
				input.RequireSignedImage = true
				input.ImageSignatures, err = security.ImageSignatureCount(ctx, image)
				if err != nil {
					return err
				}
			}

			decision := release.EvaluateRollout(input)
			policies, _ := cmd.Flags().GetStringSlice("policy")
			decision, err = release.EvaluateRolloutPolicy(ctx, decision, policies, input)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if err := printJSON(decision); err != nil {
					return err
				}
			}
			if !decision.Allow {
				for _, r := range decision.Reasons {
					slog.Error("rollout blocked", "reason", r)
				}
				return fmt.Errorf("rollout blocked by %d reasons", len(decision.Reasons))
			}
			slog.Info("rollout allowed", "branch", branch)
			return nil
		},
	}
	cmd.Flags().StringSlice("allowedBranches", []string{"main"}, "Branches allowed to roll out, globs like release/* are supported")
	cmd.Flags().StringArray("check", nil, "<name>=<true|false>, can be repeated")
	cmd.Flags().Float64("errorRate", 0, "The current error rate between 0 and 1")
	cmd.Flags().Float64("maxErrorRate", 0, "The maximum error rate. 0 disables the rule.")
	cmd.Flags().String("freezeFile", "", "A yaml file with freeze windows")
	cmd.Flags().String("image", "", "Require this image to carry a cosign signature")
	cmd.Flags().StringSlice("policy", nil, "Rego files or directories with a data.rollout.deny rule")
	cmd.Flags().Bool("json", false, "Print the decision as json")
	return cmd
}
