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

package utils

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

func ReadJSON[T any](path string) (T, error) {
	var t T
	b, err := os.ReadFile(path)
	if err != nil {
		return t, errors.Wrapf(err, "could not read %s", path)
	}

	if err := json.Unmarshal(b, &t); err != nil {
		return t, errors.Wrapf(err, "could not parse %s", path)
	}
	return t, nil
}

// WriteJSON writes v indented by two spaces with a trailing newline.
func WriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not marshal json")
	}
	b = append(b, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "could not create directory %s", dir)
		}
	}

	return os.WriteFile(path, b, 0644) // nolint:gosec // config files are meant to be readable
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
