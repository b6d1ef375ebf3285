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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// containsRune checks if a string contains a specific rune
func containsRune(s string, r rune) bool {
	for _, char := range s {
		if char == r {
			return true
		}
	}
	return false
}

func sanitizeRegistryURL(registry string) string {
	registry = strings.TrimSuffix(registry, "/")

	// npm registries are always addressed with a protocol
	if !strings.HasPrefix(registry, "http://") && !strings.HasPrefix(registry, "https://") {
		registry = "https://" + registry
	}

	return registry + "/"
}

// isValidPath checks if a string is a valid file path
func isValidPath(path string) error {
	if !utf8.ValidString(path) || len(path) == 0 || containsRune(path, 0) {
		return fmt.Errorf("path contains null bytes")
	}

	invalidChars := `<>:"\|?*`
	for _, char := range invalidChars {
		if containsRune(path, char) {
			return fmt.Errorf("invalid character '%c' in path", char)
		}
	}

	if len(path) > 260 {
		return fmt.Errorf("path length exceeds 260 characters")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if _, err = os.Stat(absPath); os.IsNotExist(err) {
		return errors.Wrapf(err, "path does not exist: %s", absPath)
	}

	return nil
}
