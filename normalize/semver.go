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
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

type Bump string

const (
	BumpNone  Bump = "none"
	BumpPatch Bump = "patch"
	BumpMinor Bump = "minor"
	BumpMajor Bump = "major"
)

// Rank orders bumps so the highest one wins when several apply.
func (b Bump) Rank() int {
	switch b {
	case BumpMajor:
		return 3
	case BumpMinor:
		return 2
	case BumpPatch:
		return 1
	}
	return 0
}

// Regex for validating a correct semver.
var ValidSemverRegex = regexp.MustCompile(`^(?P<major>0|[1-9]\d*)\.(?P<minor>0|[1-9]\d*)\.(?P<patch>0|[1-9]\d*)(?:-(?P<prerelease>(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?(?:\+(?P<buildmetadata>[0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

func IsValidSemver(v string) bool {
	return ValidSemverRegex.MatchString(strings.TrimPrefix(v, "v"))
}

func SemverSort(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		return SemverCompare(a, b)
	})
}

func SemverCompare(v1, v2 string) int {
	// check if "v" prefix is present, if not add it for comparison
	if !strings.HasPrefix(v1, "v") {
		v1 = "v" + v1
	}
	if !strings.HasPrefix(v2, "v") {
		v2 = "v" + v2
	}

	return semver.Compare(v1, v2)
}

// LatestSemverTag returns the highest valid semver tag as written in the repository
// and its normalized form without the "v" prefix.
func LatestSemverTag(tags []string) (string, string, error) {
	original := map[string]string{}
	var valid []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		t := strings.TrimPrefix(tag, "v")
		if !ValidSemverRegex.MatchString(t) {
			continue
		}
		original[t] = tag
		valid = append(valid, t)
	}

	if len(valid) == 0 {
		return "", "", errors.New("no valid semver tags found")
	}

	SemverSort(valid)
	latest := valid[len(valid)-1]
	return original[latest], latest, nil
}

type parsedVersion struct {
	major, minor, patch int
	prerelease          string
}

func parseVersion(v string) (parsedVersion, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if !ValidSemverRegex.MatchString(v) {
		return parsedVersion{}, fmt.Errorf("invalid semver: %s", v)
	}
	// build metadata does not take part in bumps
	v, _, _ = strings.Cut(v, "+")
	core, pre, _ := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return parsedVersion{}, errors.Wrapf(err, "invalid version segment %q", p)
		}
		nums[i] = n
	}
	return parsedVersion{major: nums[0], minor: nums[1], patch: nums[2], prerelease: pre}, nil
}

func (p parsedVersion) String() string {
	s := fmt.Sprintf("%d.%d.%d", p.major, p.minor, p.patch)
	if p.prerelease != "" {
		s += "-" + p.prerelease
	}
	return s
}

// BumpVersion applies bump to version. Besides major, minor and patch it accepts
// "prerelease:<id>" which produces or increments "<id>.N". Switching to an id that sorts
// below the current one (rc to beta) is an error.
// A prerelease bumped to the release level it is heading for loses its suffix:
// 1.3.0-rc.2 + minor = 1.3.0.
func BumpVersion(version string, bump string) (string, error) {
	p, err := parseVersion(version)
	if err != nil {
		return "", err
	}

	if id, ok := strings.CutPrefix(bump, "prerelease:"); ok {
		if id == "" {
			return "", errors.New("prerelease identifier must not be empty")
		}
		if rest, ok := strings.CutPrefix(p.prerelease, id+"."); ok {
			n, err := strconv.Atoi(rest)
			if err == nil {
				p.prerelease = fmt.Sprintf("%s.%d", id, n+1)
				return p.String(), nil
			}
		}
		from := p.String()
		if p.prerelease == "" {
			p.patch++
		}
		p.prerelease = id + ".1"
		if SemverCompare(p.String(), from) <= 0 {
			return "", fmt.Errorf("prerelease %s would sort below %s", p.String(), from)
		}
		return p.String(), nil
	}

	wasPrerelease := p.prerelease != ""
	p.prerelease = ""
	switch Bump(bump) {
	case BumpMajor:
		if !wasPrerelease || p.minor != 0 || p.patch != 0 {
			p.major++
			p.minor = 0
			p.patch = 0
		}
	case BumpMinor:
		if !wasPrerelease || p.patch != 0 {
			p.minor++
			p.patch = 0
		}
	case BumpPatch:
		if !wasPrerelease {
			p.patch++
		}
	case BumpNone:
		return version, nil
	default:
		return "", fmt.Errorf("unknown bump: %s", bump)
	}
	return p.String(), nil
}

// BumpBetween classifies the upgrade from one version to another.
// Versions that cannot be parsed yield BumpNone.
func BumpBetween(from, to string) Bump {
	f, err := parseVersion(NormalizeVersion(from))
	if err != nil {
		return BumpNone
	}
	t, err := parseVersion(NormalizeVersion(to))
	if err != nil {
		return BumpNone
	}

	switch {
	case t.major != f.major:
		return BumpMajor
	case t.minor != f.minor:
		return BumpMinor
	case t.patch != f.patch || t.prerelease != f.prerelease:
		return BumpPatch
	}
	return BumpNone
}

// NormalizeVersion turns the loose versions package managers print ("^1.2", "v3", "=1.0.0")
// into a semver string. The input is returned unchanged if nothing sensible can be made of it.
func NormalizeVersion(v string) string {
	s := strings.TrimSpace(v)
	s = strings.TrimLeft(s, "^~=v ")
	core, suffix := s, ""
	if idx := strings.IndexAny(s, "-+"); idx != -1 {
		core, suffix = s[:idx], s[idx:]
	}
	segments := strings.Split(core, ".")
	if len(segments) > 3 {
		return v
	}
	for i, seg := range segments {
		if _, err := strconv.Atoi(seg); err != nil {
			return v
		}
		if trimmed := strings.TrimLeft(seg, "0"); trimmed != "" {
			segments[i] = trimmed
		} else {
			segments[i] = "0"
		}
	}
	for len(segments) < 3 {
		segments = append(segments, "0")
	}
	res := strings.Join(segments, ".") + suffix
	if !ValidSemverRegex.MatchString(res) {
		return v
	}
	return res
}
