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

package operations

import (
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

// GenerateEnvExample writes the keys of envPath to examplePath, sorted, with every value blanked
// except for the keys listed in keepValues.
func GenerateEnvExample(envPath, examplePath string, keepValues []string) ([]string, error) {
	env, err := godotenv.Read(envPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", envPath)
	}

	keys := utils.SortedKeys(env)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		if slices.Contains(keepValues, k) {
			sb.WriteString(quoteEnvValue(env[k]))
		}
		sb.WriteString("\n")
	}

	if err := os.WriteFile(examplePath, []byte(sb.String()), 0o644); err != nil { // nolint:gosec // example files are meant to be committed
		return nil, errors.Wrapf(err, "could not write %s", examplePath)
	}
	return keys, nil
}

var envEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quoteEnvValue(v string) string {
	if strings.ContainsAny(v, " #\"'\n") {
		return `"` + envEscaper.Replace(v) + `"`
	}
	return v
}

// MissingEnvKeys returns the keys of examplePath that envPath does not define. A missing env file
// lacks every key.
func MissingEnvKeys(envPath, examplePath string) ([]string, error) {
	example, err := godotenv.Read(examplePath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", examplePath)
	}

	env := map[string]string{}
	if _, statErr := os.Stat(envPath); statErr == nil {
		env, err = godotenv.Read(envPath)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read %s", envPath)
		}
	}

	missing := []string{}
	for _, k := range utils.SortedKeys(example) {
		if _, ok := env[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing, nil
}
