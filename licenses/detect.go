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

package licenses

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/licensecheck"
)

// MinCoverage is the share of a license file that has to match a known license text.
const MinCoverage = 75.0

// DetectText returns the SPDX id of the license text with the best match,
// or an empty string if the text is not covered well enough.
func DetectText(text string) string {
	cov := licensecheck.Scan([]byte(text))
	if cov.Percent < MinCoverage || len(cov.Match) == 0 {
		return ""
	}

	best := cov.Match[0]
	for _, m := range cov.Match[1:] {
		if m.End-m.Start > best.End-best.Start {
			best = m
		}
	}
	return best.ID
}

// DetectFile looks for LICENSE, LICENCE or COPYING files in dir and detects the first one it can identify.
func DetectFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToUpper(e.Name())
		if !strings.HasPrefix(name, "LICENSE") && !strings.HasPrefix(name, "LICENCE") && !strings.HasPrefix(name, "COPYING") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if id := DetectText(string(b)); id != "" {
			return id
		}
	}
	return ""
}
