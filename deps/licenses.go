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
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/licenses"
	"github.com/l3montree-dev/devkit/utils"
)

// CollectLicenses lists the license of every installed dependency. pnpm ships its own license
// listing, npm and yarn projects are inspected with license-checker.
func CollectLicenses(ctx context.Context, dir string, pm PackageManager) ([]licenses.PackageLicense, error) {
	var pkgs []licenses.PackageLicense
	if pm == PNPM {
		res, err := utils.RunCommand(ctx, dir, "pnpm", "licenses", "list", "--json")
		if err != nil {
			return nil, errors.Wrap(err, "could not list licenses with pnpm")
		}
		pkgs, err = ParsePnpmLicenses([]byte(res.Stdout))
		if err != nil {
			return nil, err
		}
	} else {
		res, err := utils.RunCommand(ctx, dir, "npx", "--yes", "license-checker", "--json")
		if err != nil {
			return nil, errors.Wrap(err, "could not list licenses with license-checker")
		}
		pkgs, err = ParseLicenseCheckerOutput([]byte(res.Stdout))
		if err != nil {
			return nil, err
		}
	}

	for i, pkg := range pkgs {
		if strings.TrimSpace(pkg.License) != "" && !strings.EqualFold(pkg.License, "UNKNOWN") || pkg.Path == "" {
			continue
		}
		if id := licenses.DetectFile(pkg.Path); id != "" {
			slog.Debug("detected license from license file", "package", pkg.ID(), "license", id)
			pkgs[i].License = id
		}
	}
	return pkgs, nil
}

// ParsePnpmLicenses reads the output of "pnpm licenses list --json" which groups packages by license.
func ParsePnpmLicenses(out []byte) ([]licenses.PackageLicense, error) {
	var report map[string][]struct {
		Name     string   `json:"name"`
		Version  string   `json:"version"`
		Versions []string `json:"versions"`
		Path     string   `json:"path"`
		Paths    []string `json:"paths"`
		License  string   `json:"license"`
	}
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, errors.Wrap(err, "could not parse pnpm licenses output")
	}

	var pkgs []licenses.PackageLicense
	for group, entries := range report {
		for _, e := range entries {
			license := utils.OrDefault(utils.EmptyThenNil(e.License), group)
			versions := e.Versions
			paths := e.Paths
			if len(versions) == 0 {
				versions = []string{e.Version}
				paths = []string{e.Path}
			}
			for i, v := range versions {
				pkg := licenses.PackageLicense{Name: e.Name, Version: v, License: license}
				if i < len(paths) {
					pkg.Path = paths[i]
				}
				pkgs = append(pkgs, pkg)
			}
		}
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// ParseLicenseCheckerOutput reads license-checker's json output keyed by "name@version".
func ParseLicenseCheckerOutput(out []byte) ([]licenses.PackageLicense, error) {
	var report map[string]struct {
		Licenses json.RawMessage `json:"licenses"`
		Path     string          `json:"path"`
	}
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, errors.Wrap(err, "could not parse license-checker output")
	}

	pkgs := make([]licenses.PackageLicense, 0, len(report))
	for id, e := range report {
		name, version := splitPackageID(id)
		pkgs = append(pkgs, licenses.PackageLicense{
			Name:    name,
			Version: version,
			License: licenseField(e.Licenses),
			Path:    e.Path,
		})
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// licenseField handles both a single license and a list, the latter is joined into an OR expression.
func licenseField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 1 {
			return "(" + strings.Join(list, " OR ") + ")"
		}
		return strings.Join(list, "")
	}
	return ""
}

// splitPackageID splits "@scope/name@1.0.0" at the last "@".
func splitPackageID(id string) (string, string) {
	idx := strings.LastIndex(id, "@")
	if idx <= 0 {
		return id, ""
	}
	return id[:idx], id[idx+1:]
}

func sortPackages(pkgs []licenses.PackageLicense) {
	sort.Slice(pkgs, func(i, j int) bool {
		return pkgs[i].ID() < pkgs[j].ID()
	})
}
