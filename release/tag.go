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

package release

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/deps"
	"github.com/l3montree-dev/devkit/gitutil"
	"github.com/l3montree-dev/devkit/utils"
)

type TagOptions struct {
	Message string
	Sign    bool
	Push    bool
	Remote  string
}

// CreateReleaseTag creates the annotated tag v<version> and pushes it if requested.
func CreateReleaseTag(ctx context.Context, path string, version string, opts TagOptions) (string, error) {
	tag := "v" + strings.TrimPrefix(version, "v")
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	tags, err := gitutil.Lister.GetTags(path)
	if err != nil {
		return "", errors.Wrap(err, "could not list tags")
	}
	if slices.Contains(tags, tag) {
		return "", errors.Errorf("tag %s already exists", tag)
	}

	msg := utils.OrDefault(utils.EmptyThenNil(opts.Message), "Release "+tag)
	if err := gitutil.Lister.CreateTag(path, tag, msg, opts.Sign); err != nil {
		return "", errors.Wrapf(err, "could not create tag %s", tag)
	}
	slog.Info("created tag", "tag", tag, "signed", opts.Sign)

	if opts.Push {
		remote := utils.OrDefault(utils.EmptyThenNil(opts.Remote), "origin")
		if err := gitutil.Lister.PushTag(path, remote, tag); err != nil {
			return tag, errors.Wrapf(err, "could not push tag %s", tag)
		}
		slog.Info("pushed tag", "tag", tag, "remote", remote)
	}
	return tag, nil
}

type PublishOptions struct {
	Dir            string
	PackageManager deps.PackageManager
	// Tag is the dist-tag, e.g. "next".
	Tag    string
	Access string
	DryRun bool
}

func Publish(ctx context.Context, opts PublishOptions) (utils.CommandResult, error) {
	pm := opts.PackageManager
	if pm == "" {
		pm = deps.DetectPackageManager(opts.Dir)
	}
	if opts.Access != "" && opts.Access != "public" && opts.Access != "restricted" {
		return utils.CommandResult{}, errors.Errorf("invalid access %s", opts.Access)
	}

	args := []string{"publish"}
	if opts.Tag != "" {
		args = append(args, "--tag", opts.Tag)
	}
	if opts.Access != "" {
		args = append(args, "--access", opts.Access)
	}
	if opts.DryRun {
		args = append(args, "--dry-run")
	}
	if pm == deps.Yarn {
		args = append(args, "--non-interactive")
	}

	res, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: string(pm), Args: args, Dir: opts.Dir, ThrowOnError: true})
	if err != nil {
		return res, errors.Wrap(err, "could not publish package")
	}
	return res, nil
}
