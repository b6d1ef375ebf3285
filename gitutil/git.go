// Copyright (C) 2024 Tim Bastin, l3montree GmbH
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

package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/l3montree-dev/devkit/normalize"
	"github.com/l3montree-dev/devkit/utils"
	"github.com/pkg/errors"
)

type VersionInfo struct {
	IsTag           bool
	BranchOrTag     string
	DefaultBranch   *string
	LatestTag       string
	CommitsAfterTag int
}

type GitLister interface {
	MarkAllPathsAsSafe() error
	GetTags(path string) ([]string, error)
	GitCommitCount(path string, tag *string) (int, error)
	GetBranchName(path string) (string, error)
	GetDefaultBranchName(path string) (string, error)
	ChangedFiles(path string, base string) ([]string, error)
	StagedFiles(path string) ([]string, error)
	IsClean(path string) (bool, error)
	MergedBranches(path string, base string) ([]string, error)
	DeleteBranch(path string, name string) error
	CreateTag(path string, tag string, message string, sign bool) error
	PushTag(path string, remote string, tag string) error
}

var Lister GitLister = commandLineGitLister{}

type commandLineGitLister struct{}

func NewCommandLineGitLister() GitLister {
	return commandLineGitLister{}
}

func runGit(path string, args ...string) (string, error) {
	res, err := utils.RunCommand(context.Background(), utils.GetDirFromPath(path), "git", args...)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func lines(s string) []string {
	var res []string
	for l := range strings.SplitSeq(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return res
}

func (g commandLineGitLister) GetDefaultBranchName(path string) (string, error) {
	// returns something like "origin/main"
	out, err := runGit(path, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil {
		slog.Debug("could not get default branch name", "err", err, "path", path)
		return "", err
	}

	outStr := strings.TrimSpace(out)
	if outStr == "" {
		return "", fmt.Errorf("could not get default branch name")
	}
	return strings.TrimPrefix(outStr, "origin/"), nil
}

func (g commandLineGitLister) GetBranchName(path string) (string, error) {
	out, err := runGit(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g commandLineGitLister) MarkAllPathsAsSafe() error {
	_, err := runGit("", "config", "--global", "--add", "safe.directory", "*")
	return err
}

func (g commandLineGitLister) GetTags(path string) ([]string, error) {
	out, err := runGit(path, "tag")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

func (g commandLineGitLister) GitCommitCount(path string, tag *string) (int, error) {
	rev := "HEAD"
	if tag != nil {
		rev = *tag + "..HEAD"
	}
	out, err := runGit(path, "rev-list", "--count", rev)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(out))
}

func (g commandLineGitLister) ChangedFiles(path string, base string) ([]string, error) {
	out, err := runGit(path, "diff", "--name-only", "--diff-filter=ACMR", base+"...HEAD")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

func (g commandLineGitLister) StagedFiles(path string) ([]string, error) {
	out, err := runGit(path, "diff", "--cached", "--name-only", "--diff-filter=ACMR")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

func (g commandLineGitLister) IsClean(path string) (bool, error) {
	out, err := runGit(path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

func (g commandLineGitLister) MergedBranches(path string, base string) ([]string, error) {
	out, err := runGit(path, "branch", "--merged", base, "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

func (g commandLineGitLister) DeleteBranch(path string, name string) error {
	_, err := runGit(path, "branch", "-d", name)
	return err
}

func (g commandLineGitLister) CreateTag(path string, tag string, message string, sign bool) error {
	args := []string{"tag"}
	if sign {
		args = append(args, "-s")
	} else {
		args = append(args, "-a")
	}
	args = append(args, tag, "-m", message)
	_, err := runGit(path, args...)
	return err
}

func (g commandLineGitLister) PushTag(path string, remote string, tag string) error {
	_, err := runGit(path, "push", remote, tag)
	return err
}

func GetVersionInfo(path string) (VersionInfo, error) {
	// we use the commit count, to check if we should create a new version - or if its dirty.
	// v1.0.0 - . . . . . . . . . . - v1.0.1
	// all commits after v1.0.0 are part of v1.0.1
	// if there are no commits after the tag, we are on a clean tag
	version, commitAfterTag, err := getCurrentVersion(path)
	if err != nil {
		return VersionInfo{}, errors.Wrap(err, "could not get current version")
	}

	branchOrTag, err := Lister.GetBranchName(path)
	if err != nil {
		return VersionInfo{}, errors.Wrap(err, "could not get branch name")
	}

	if commitAfterTag == 0 {
		// we are on a clean tag - use the tag as ref name
		branchOrTag = version
	}

	info := VersionInfo{
		BranchOrTag:     branchOrTag,
		IsTag:           commitAfterTag == 0,
		LatestTag:       version,
		CommitsAfterTag: commitAfterTag,
	}

	defaultBranch, err := Lister.GetDefaultBranchName(path)
	if err != nil {
		slog.Debug("could not get default branch name", "err", err, "path", path)
		return info, nil
	}
	info.DefaultBranch = &defaultBranch
	slog.Debug("got git version info", "branchOrTag", info.BranchOrTag, "defaultBranch", defaultBranch)
	return info, nil
}

func getCurrentVersion(path string) (string, int, error) {
	tags, err := Lister.GetTags(path)
	if err != nil {
		return "", 0, err
	}

	originalLatestTagName, latestTag, err := normalize.LatestSemverTag(tags)
	if err != nil {
		// there is not a single valid semver tag
		commitCount, err := Lister.GitCommitCount(path, nil)
		if err != nil {
			return "", 0, err
		}
		return "0.0.0", commitCount, nil
	}

	commitCount, err := Lister.GitCommitCount(path, &originalLatestTagName)
	if err != nil {
		return "", 0, err
	}

	return latestTag, commitCount, nil
}

// CleanupMergedBranches deletes local branches merged into base. Protected branches,
// base itself and the current branch are never touched. With dryRun nothing is deleted.
func CleanupMergedBranches(path string, base string, protected []string, dryRun bool) ([]string, error) {
	merged, err := Lister.MergedBranches(path, base)
	if err != nil {
		return nil, errors.Wrap(err, "could not list merged branches")
	}

	current, err := Lister.GetBranchName(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not get current branch")
	}

	var deleted []string
	for _, branch := range merged {
		branch = strings.TrimPrefix(branch, "* ")
		if branch == base || branch == current || utils.Contains(protected, branch) {
			continue
		}
		if !dryRun {
			if err := Lister.DeleteBranch(path, branch); err != nil {
				return deleted, errors.Wrapf(err, "could not delete branch %s", branch)
			}
			slog.Info("deleted branch", "branch", branch)
		}
		deleted = append(deleted, branch)
	}
	return deleted, nil
}
