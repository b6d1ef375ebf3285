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

package data

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// ValidateJSONDocument validates the document at docPath against the json schema at schemaPath
// and returns one violation per failing keyword, sorted. A valid document has no violations.
func ValidateJSONDocument(schemaPath, docPath string) ([]string, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not compile schema %s", schemaPath)
	}

	f, err := os.Open(docPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", docPath)
	}
	defer f.Close()

	doc, err := jsonschema.UnmarshalJSON(f)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", docPath)
	}

	err = schema.Validate(doc)
	if err == nil {
		return []string{}, nil
	}
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, err
	}

	violations := []string{}
	collectViolations(validationErr, &violations)
	sort.Strings(violations)
	return violations, nil
}

func collectViolations(err *jsonschema.ValidationError, violations *[]string) {
	if len(err.Causes) == 0 {
		location := "/" + strings.Join(err.InstanceLocation, "/")
		*violations = append(*violations, fmt.Sprintf("%s: %s", location, err.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, cause := range err.Causes {
		collectViolations(cause, violations)
	}
}
