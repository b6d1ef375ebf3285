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
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var IgnoredDirs = []string{"node_modules", ".git", "dist", "build", "vendor", ".terraform"}

// FindFiles walks root and returns every file accepted by match, sorted.
// Directories listed in IgnoredDirs are not entered.
func FindFiles(root string, match func(path string, d fs.DirEntry) bool) ([]string, error) {
	var res []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && slices.Contains(IgnoredDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if match(path, d) {
			res = append(res, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(res)
	return res, nil
}

// FindFilesByExt matches extensions case-insensitively. An empty list matches every file.
func FindFilesByExt(root string, exts ...string) ([]string, error) {
	normalized := Map(exts, func(e string) string {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		return e
	})
	return FindFiles(root, func(path string, _ fs.DirEntry) bool {
		if len(normalized) == 0 {
			return true
		}
		return slices.Contains(normalized, strings.ToLower(filepath.Ext(path)))
	})
}

// CopyFile copies src to dst, keeping the permissions of src.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, content, info.Mode().Perm())
}
