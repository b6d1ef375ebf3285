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
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/l3montree-dev/devkit/utils"
	"github.com/pkg/errors"
)

type Diagnostic struct {
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Detail   string `json:"detail"`
	Range    *struct {
		Filename string `json:"filename"`
		Start    struct {
			Line int `json:"line"`
		} `json:"start"`
	} `json:"range,omitempty"`
}

// Location returns "file:line" or an empty string for diagnostics without a range.
func (d Diagnostic) Location() string {
	if d.Range == nil {
		return ""
	}
	return d.Range.Filename + ":" + strconv.Itoa(d.Range.Start.Line)
}

type ValidateResult struct {
	Valid        bool         `json:"valid"`
	ErrorCount   int          `json:"error_count"`
	WarningCount int          `json:"warning_count"`
	Diagnostics  []Diagnostic `json:"diagnostics"`
}

type PlanResult struct {
	HasChanges bool
	PlanFile   string
	Output     string
}

// TerraformFmt returns the files terraform fmt rewrote or, with check, the files it would rewrite.
func TerraformFmt(ctx context.Context, dir string, check bool) ([]string, error) {
	args := []string{"fmt", "-list=true", "-recursive"}
	if check {
		args = append(args, "-check")
	}
	res, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "terraform", Args: args, Dir: dir})
	if err != nil {
		return nil, err
	}
	// -check exits with 3 when files are not formatted
	if res.ExitCode != 0 && !(check && res.ExitCode == 3) {
		return nil, &utils.CommandError{Name: "terraform", Args: args, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	}

	files := []string{}
	for line := range strings.SplitSeq(res.Stdout, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			files = append(files, l)
		}
	}
	return files, nil
}

func TerraformValidate(ctx context.Context, dir string) (ValidateResult, error) {
	if _, err := utils.RunCommand(ctx, dir, "terraform", "init", "-backend=false", "-input=false"); err != nil {
		return ValidateResult{}, errors.Wrap(err, "could not initialize terraform")
	}

	// validate exits with 1 on invalid configurations but still prints the json report
	res, err := utils.Runner.Run(ctx, utils.CommandOptions{
		Name: "terraform",
		Args: []string{"validate", "-json"},
		Dir:  dir,
	})
	if err != nil {
		return ValidateResult{}, err
	}
	return ParseValidateOutput(res.Stdout)
}

func ParseValidateOutput(out string) (ValidateResult, error) {
	var result ValidateResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return result, errors.Wrap(err, "could not parse terraform validate output")
	}
	if result.Diagnostics == nil {
		result.Diagnostics = []Diagnostic{}
	}
	return result, nil
}

// TerraformPlan runs a plan with -detailed-exitcode. Exit code 2 means the plan has changes.
func TerraformPlan(ctx context.Context, dir string, out string) (PlanResult, error) {
	args := []string{"plan", "-detailed-exitcode", "-input=false", "-no-color"}
	if out != "" {
		args = append(args, "-out="+out)
	}
	res, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "terraform", Args: args, Dir: dir})
	if err != nil {
		return PlanResult{}, err
	}

	switch res.ExitCode {
	case 0, 2:
		return PlanResult{HasChanges: res.ExitCode == 2, PlanFile: out, Output: res.Stdout}, nil
	default:
		return PlanResult{}, &utils.CommandError{Name: "terraform", Args: args, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	}
}
