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

package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/l3montree-dev/devkit/deps"
	"github.com/l3montree-dev/devkit/utils"
	"github.com/pkg/errors"
)

// lookPath is swapped in tests.
var lookPath = utils.CommandExists

type BootstrapOptions struct {
	Dir           string
	RequiredTools []string
	// CopyEnv creates .env from .env.example when .env does not exist.
	CopyEnv bool
	Install bool
	// PackageManager is detected from the lock file when empty.
	PackageManager deps.PackageManager
}

type BootstrapReport struct {
	MissingTools []string
	EnvCreated   bool
	Installed    bool
}

func Bootstrap(ctx context.Context, opts BootstrapOptions) (BootstrapReport, error) {
	report := BootstrapReport{MissingTools: []string{}}
	if opts.Dir == "" {
		opts.Dir = "."
	}

	for _, tool := range opts.RequiredTools {
		if !lookPath(tool) {
			report.MissingTools = append(report.MissingTools, tool)
		}
	}
	if len(report.MissingTools) > 0 {
		return report, fmt.Errorf("missing required tools: %s", strings.Join(report.MissingTools, ", "))
	}

	if opts.CopyEnv {
		envPath := filepath.Join(opts.Dir, ".env")
		examplePath := filepath.Join(opts.Dir, ".env.example")
		if !utils.FileExists(envPath) && utils.FileExists(examplePath) {
			if err := utils.CopyFile(examplePath, envPath); err != nil {
				return report, errors.Wrap(err, "could not create .env")
			}
			report.EnvCreated = true
			slog.Info("created .env from .env.example", "dir", opts.Dir)
		}
	}

	if opts.Install {
		pm := opts.PackageManager
		if pm == "" {
			pm = deps.DetectPackageManager(opts.Dir)
		}
		if _, err := utils.RunCommand(ctx, opts.Dir, string(pm), "install"); err != nil {
			return report, errors.Wrap(err, "could not install dependencies")
		}
		report.Installed = true
	}
	return report, nil
}
