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

package deps

import (
	"bufio"
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/normalize"
	"github.com/l3montree-dev/devkit/utils"
)

type OutdatedPackage struct {
	Name    string         `json:"name"`
	Current string         `json:"current"`
	Wanted  string         `json:"wanted"`
	Latest  string         `json:"latest"`
	Bump    normalize.Bump `json:"bump"`
}

func outdatedArgs(pm PackageManager) []string {
	if pm == PNPM {
		return []string{"outdated", "--format", "json"}
	}
	return []string{"outdated", "--json"}
}

// Outdated lists dependencies with a newer version available. The package managers exit with 1 when
// something is outdated, which is not treated as a failure.
func Outdated(ctx context.Context, dir string, pm PackageManager) ([]OutdatedPackage, error) {
	res, err := utils.Runner.Run(ctx, utils.CommandOptions{
		Name: string(pm),
		Args: outdatedArgs(pm),
		Dir:  dir,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not run %s outdated", pm)
	}
	if res.ExitCode > 1 {
		return nil, &utils.CommandError{Name: string(pm), Args: outdatedArgs(pm), ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	}
	return ParseOutdatedOutput(pm, []byte(res.Stdout))
}

func ParseOutdatedOutput(pm PackageManager, out []byte) ([]OutdatedPackage, error) {
	if strings.TrimSpace(string(out)) == "" {
		return nil, nil
	}

	var pkgs []OutdatedPackage
	if pm == Yarn {
		var err error
		pkgs, err = parseYarnOutdated(out)
		if err != nil {
			return nil, err
		}
	} else {
		var report map[string]struct {
			Current string `json:"current"`
			Wanted  string `json:"wanted"`
			Latest  string `json:"latest"`
		}
		if err := json.Unmarshal(out, &report); err != nil {
			return nil, errors.Wrap(err, "could not parse outdated output")
		}
		for name, p := range report {
			pkgs = append(pkgs, OutdatedPackage{Name: name, Current: p.Current, Wanted: p.Wanted, Latest: p.Latest})
		}
	}

	for i := range pkgs {
		// not installed packages have no current version
		if pkgs[i].Current == "" {
			pkgs[i].Bump = normalize.BumpNone
			continue
		}
		pkgs[i].Bump = normalize.BumpBetween(pkgs[i].Current, pkgs[i].Latest)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

// yarn classic prints a "table" event with rows of [name, current, wanted, latest, type, url].
func parseYarnOutdated(out []byte) ([]OutdatedPackage, error) {
	var pkgs []OutdatedPackage
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var line struct {
			Type string `json:"type"`
			Data struct {
				Body [][]string `json:"body"`
			} `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil || line.Type != "table" {
			continue
		}
		for _, row := range line.Data.Body {
			if len(row) < 4 {
				continue
			}
			pkgs = append(pkgs, OutdatedPackage{Name: row[0], Current: row[1], Wanted: row[2], Latest: row[3]})
		}
	}
	return pkgs, errors.Wrap(scanner.Err(), "could not read yarn outdated output")
}
