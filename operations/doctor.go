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

	"github.com/l3montree-dev/devkit/utils"
	"golang.org/x/sync/errgroup"
)

var DefaultDoctorTools = []string{"git", "node", "npm", "docker", "terraform", "gitleaks", "syft", "cosign"}

type ToolVersion struct {
	Tool    string
	Version string
	Missing bool
}

// ToolVersions asks every tool for its version. The result keeps the order of tools.
func ToolVersions(ctx context.Context, tools []string) []ToolVersion {
	res := make([]ToolVersion, len(tools))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, tool := range tools {
		g.Go(func() error {
			res[i] = ToolVersion{Tool: tool}
			out, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: tool, Args: []string{"--version"}})
			if err != nil {
				res[i].Missing = true
				return nil
			}
			res[i].Version = utils.FirstLine(out.Stdout)
			if res[i].Version == "" {
				res[i].Version = utils.FirstLine(out.Stderr)
			}
			return nil
		})
	}
	_ = g.Wait()
	return res
}
