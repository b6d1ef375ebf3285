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
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeNull    = "null"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeMixed   = "mixed"
)

type Schema struct {
	Name    string            `json:"name"`
	Columns map[string]string `json:"columns"`
}

type ColumnChange struct {
	Column string `json:"column"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type SchemaDrift struct {
	Added        []string       `json:"added"`
	Removed      []string       `json:"removed"`
	Changed      []ColumnChange `json:"changed"`
	DriftPercent float64        `json:"driftPercent"`
	Exceeded     bool           `json:"exceeded"`
}

func valueType(v any) string {
	switch v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case float64, float32, int, int64, json.Number:
		return TypeNumber
	case map[string]any:
		return TypeObject
	case []any:
		return TypeArray
	}
	return TypeMixed
}

// InferSchema derives the column types from records. null values do not change the type of a
// column that has values, a column holding two different types is mixed.
func InferSchema(name string, records []map[string]any) Schema {
	schema := Schema{Name: name, Columns: map[string]string{}}
	for _, record := range records {
		for column, value := range record {
			t := valueType(value)
			current, ok := schema.Columns[column]
			switch {
			case !ok || current == TypeNull:
				schema.Columns[column] = t
			case t == TypeNull || t == current:
			default:
				schema.Columns[column] = TypeMixed
			}
		}
	}
	return schema
}

// CompareSchemas measures how much current deviates from baseline. The drift is the number of
// added, removed and changed columns relative to the baseline column count, in percent.
func CompareSchemas(baseline, current Schema, thresholdPercent float64) SchemaDrift {
	drift := SchemaDrift{Added: []string{}, Removed: []string{}, Changed: []ColumnChange{}}

	for _, column := range utils.SortedKeys(current.Columns) {
		baseType, ok := baseline.Columns[column]
		switch {
		case !ok:
			drift.Added = append(drift.Added, column)
		case baseType != current.Columns[column]:
			drift.Changed = append(drift.Changed, ColumnChange{Column: column, From: baseType, To: current.Columns[column]})
		}
	}
	for _, column := range utils.SortedKeys(baseline.Columns) {
		if _, ok := current.Columns[column]; !ok {
			drift.Removed = append(drift.Removed, column)
		}
	}

	changes := len(drift.Added) + len(drift.Removed) + len(drift.Changed)
	switch {
	case len(baseline.Columns) > 0:
		drift.DriftPercent = float64(changes) / float64(len(baseline.Columns)) * 100
	case len(current.Columns) > 0:
		drift.DriftPercent = 100
	}
	drift.Exceeded = drift.DriftPercent > thresholdPercent
	return drift
}

func LoadSchema(path string) (Schema, error) {
	schema, err := utils.ReadJSON[Schema](path)
	if err != nil {
		return schema, err
	}
	if schema.Columns == nil {
		schema.Columns = map[string]string{}
	}
	return schema, nil
}

func SaveSchema(path string, schema Schema) error {
	return utils.WriteJSON(path, schema)
}

// LoadRecords reads a json array of objects, newline delimited json (.ndjson, .jsonl) or csv.
// csv values are always strings.
func LoadRecords(path string) ([]map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return utils.ReadCsvFile(path)
	case ".ndjson", ".jsonl":
		return readNDJSON(path)
	}
	return utils.ReadJSON[[]map[string]any](path)
}

func readNDJSON(path string) ([]map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	var records []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal(text, &record); err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

// ColumnNames returns the column names, sorted.
func (s Schema) ColumnNames() []string {
	return utils.SortedKeys(s.Columns)
}
