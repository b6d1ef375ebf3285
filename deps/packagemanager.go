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
	"fmt"
	"path/filepath"

	"github.com/l3montree-dev/devkit/utils"
)

type PackageManager string

const (
	NPM  PackageManager = "npm"
	PNPM PackageManager = "pnpm"
	Yarn PackageManager = "yarn"
)

func ParsePackageManager(s string) (PackageManager, error) {
	switch PackageManager(s) {
	case NPM, PNPM, Yarn:
		return PackageManager(s), nil
	}
	return "", fmt.Errorf("unsupported package manager: %s", s)
}

// DetectPackageManager picks the package manager by the lock file found in dir. npm is the fallback.
func DetectPackageManager(dir string) PackageManager {
	switch {
	case utils.FileExists(filepath.Join(dir, "pnpm-lock.yaml")):
		return PNPM
	case utils.FileExists(filepath.Join(dir, "yarn.lock")):
		return Yarn
	case utils.FileExists(filepath.Join(dir, "package-lock.json")):
		return NPM
	}
	return NPM
}

// ResolvePackageManager returns the configured package manager or detects one if none is set.
func ResolvePackageManager(dir string, configured string) (PackageManager, error) {
	if configured == "" {
		return DetectPackageManager(dir), nil
	}
	return ParsePackageManager(configured)
}
