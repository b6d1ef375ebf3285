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
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

const changesetDir = ".changeset"

type ChangesetConfig struct {
	Schema string `json:"$schema"`
	// Changelog is a module name, false, or a [module, options] tuple.
	Changelog                  any        `json:"changelog"`
	Commit                     bool       `json:"commit"`
	Fixed                      [][]string `json:"fixed"`
	Linked                     [][]string `json:"linked"`
	Access                     string     `json:"access" validate:"oneof=public restricted"`
	BaseBranch                 string     `json:"baseBranch" validate:"required"`
	UpdateInternalDependencies string     `json:"updateInternalDependencies" validate:"oneof=patch minor"`
	Ignore                     []string   `json:"ignore"`
}

func DefaultChangesetConfig() ChangesetConfig {
	return ChangesetConfig{
		Schema:                     "https://unpkg.com/@changesets/config@3.0.0/schema.json",
		Changelog:                  "@changesets/cli/changelog",
		Commit:                     false,
		Fixed:                      [][]string{},
		Linked:                     [][]string{},
		Access:                     "restricted",
		BaseBranch:                 "main",
		UpdateInternalDependencies: "patch",
		Ignore:                     []string{},
	}
}

const changesetReadme = `# Changesets

This folder holds changesets: markdown files describing which packages change with which
semver bump. Create one with ` + "`devkit release changeset`" + ` and they are collected into the
changelog on the next release.
`

// InitChangesets creates .changeset/config.json and a README if they do not exist yet.
// It reports whether anything was written.
func InitChangesets(dir string, cfg ChangesetConfig) (bool, error) {
	if err := utils.Validate(cfg); err != nil {
		return false, err
	}

	written := false
	configPath := filepath.Join(dir, changesetDir, "config.json")
	if !utils.FileExists(configPath) {
		if err := utils.WriteJSON(configPath, cfg); err != nil {
			return false, errors.Wrap(err, "could not write changeset config")
		}
		written = true
	}

	readmePath := filepath.Join(dir, changesetDir, "README.md")
	if !utils.FileExists(readmePath) {
		if err := os.WriteFile(readmePath, []byte(changesetReadme), 0o644); err != nil { // nolint:gosec
			return written, errors.Wrap(err, "could not write changeset readme")
		}
		written = true
	}
	return written, nil
}

func ReadChangesetConfig(dir string) (ChangesetConfig, error) {
	cfg, err := utils.ReadJSON[ChangesetConfig](filepath.Join(dir, changesetDir, "config.json"))
	if err != nil {
		return ChangesetConfig{}, err
	}
	if err := utils.Validate(cfg); err != nil {
		return ChangesetConfig{}, err
	}
	return cfg, nil
}
