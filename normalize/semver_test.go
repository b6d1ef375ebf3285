// Copyright (C) 2024 Tim Bastin, l3montree GmbH
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
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSemverCompare(t *testing.T) {
	assert.Equal(t, -1, SemverCompare("1.0.0", "v1.0.1"))
	assert.Equal(t, 0, SemverCompare("v2.0.0", "2.0.0"))
	assert.Equal(t, 1, SemverCompare("1.10.0", "1.9.9"))
	assert.Equal(t, -1, SemverCompare("1.0.0-rc.1", "1.0.0"))
}

func TestLatestSemverTag(t *testing.T) {
	t.Run("should return the highest tag and keep the original name", func(t *testing.T) {
		original, normalized, err := LatestSemverTag([]string{"v1.0.0", "v1.0.5", "v2.0.9", "latest", ""})
		assert.NoError(t, err)
		assert.Equal(t, "v2.0.9", original)
		assert.Equal(t, "2.0.9", normalized)
	})

	t.Run("should work with tags without a v prefix", func(t *testing.T) {
		original, normalized, err := LatestSemverTag([]string{"1.0.0", "1.10.0", "1.9.0"})
		assert.NoError(t, err)
		assert.Equal(t, "1.10.0", original)
		assert.Equal(t, "1.10.0", normalized)
	})

	t.Run("should return an error if there is no valid tag", func(t *testing.T) {
		_, _, err := LatestSemverTag([]string{"blaBla", "NOTag"})
		assert.Error(t, err)
	})
}

func TestBumpVersion(t *testing.T) {
	tests := []struct {
		version  string
		bump     string
		expected string
	}{
		{"1.2.3", "patch", "1.2.4"},
		{"1.2.3", "minor", "1.3.0"},
		{"1.2.3", "major", "2.0.0"},
		{"v1.2.3", "patch", "1.2.4"},
		{"1.2.3+build.5", "patch", "1.2.4"},
		{"1.2.3", "prerelease:rc", "1.2.4-rc.1"},
		{"1.2.4-rc.1", "prerelease:rc", "1.2.4-rc.2"},
		{"1.2.4-beta.3", "prerelease:rc", "1.2.4-rc.1"},
		{"1.2.4-rc.1", "patch", "1.2.4"},
		{"1.3.0-rc.2", "minor", "1.3.0"},
		{"1.3.1-rc.1", "minor", "1.4.0"},
		{"2.0.0-rc.1", "major", "2.0.0"},
		{"1.2.3", "none", "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.version+" "+tt.bump, func(t *testing.T) {
			res, err := BumpVersion(tt.version, tt.bump)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, res)
		})
	}

	t.Run("should reject invalid versions and bumps", func(t *testing.T) {
		_, err := BumpVersion("1.2", "patch")
		assert.Error(t, err)
		_, err = BumpVersion("1.2.3", "huge")
		assert.Error(t, err)
		_, err = BumpVersion("1.2.3", "prerelease:")
		assert.Error(t, err)
	})

	t.Run("should reject switching to a prerelease id that sorts lower", func(t *testing.T) {
		_, err := BumpVersion("1.2.0-rc.1", "prerelease:beta")
		assert.Error(t, err)

		res, err := BumpVersion("1.2.0-alpha.4", "prerelease:beta")
		assert.NoError(t, err)
		assert.Equal(t, "1.2.0-beta.1", res)
	})
}

func TestBumpBetween(t *testing.T) {
	assert.Equal(t, BumpMajor, BumpBetween("1.2.3", "2.0.0"))
	assert.Equal(t, BumpMinor, BumpBetween("^1.2.3", "1.3.0"))
	assert.Equal(t, BumpPatch, BumpBetween("1.2.3", "1.2.4"))
	assert.Equal(t, BumpNone, BumpBetween("1.2.3", "1.2.3"))
	assert.Equal(t, BumpNone, BumpBetween("git+https://example.com", "1.2.3"))
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "1.2.0", NormalizeVersion("^1.2"))
	assert.Equal(t, "3.0.0", NormalizeVersion("v3"))
	assert.Equal(t, "1.0.0", NormalizeVersion("=1.0.0"))
	assert.Equal(t, "19.3.9", NormalizeVersion("19.03.9"))
	assert.Equal(t, "1.0.0-beta.1", NormalizeVersion("1.0-beta.1"))
	assert.Equal(t, "latest", NormalizeVersion("latest"))
}

func TestBumpRank(t *testing.T) {
	assert.Greater(t, BumpMajor.Rank(), BumpMinor.Rank())
	assert.Greater(t, BumpMinor.Rank(), BumpPatch.Rank())
	assert.Greater(t, BumpPatch.Rank(), BumpNone.Rank())
}
