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

package security

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

type PolicyResult struct {
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations"`
	Warnings   []string `json:"warnings"`
}

func newPolicyResult(violations, warnings []string) PolicyResult {
	if violations == nil {
		violations = []string{}
	}
	slices.Sort(violations)
	slices.Sort(warnings)
	return PolicyResult{
		Passed:     len(violations) == 0,
		Violations: violations,
		Warnings:   warnings,
	}
}

type ConftestOptions struct {
	Policy    string
	Namespace string
	Files     []string
}

type conftestMessage struct {
	Msg string `json:"msg"`
}

type conftestResult struct {
	Filename  string            `json:"filename"`
	Namespace string            `json:"namespace"`
	Warnings  []conftestMessage `json:"warnings"`
	Failures  []conftestMessage `json:"failures"`
}

// RunConftest tests configuration files against rego policies. Exit code 1 means failures were found.
func RunConftest(ctx context.Context, opts ConftestOptions) (PolicyResult, error) {
	if len(opts.Files) == 0 {
		return PolicyResult{}, errors.New("no files to test")
	}
	args := []string{"test", "--output", "json"}
	if opts.Policy != "" {
		args = append(args, "-p", opts.Policy)
	}
	if opts.Namespace != "" {
		args = append(args, "--namespace", opts.Namespace)
	}
	args = append(args, opts.Files...)

	res, err := utils.Runner.Run(ctx, utils.CommandOptions{Name: "conftest", Args: args})
	if err != nil {
		return PolicyResult{}, errors.Wrap(err, "could not run conftest")
	}
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return PolicyResult{}, &utils.CommandError{Name: "conftest", Args: args, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	}
	return ParseConftestOutput([]byte(res.Stdout))
}

func ParseConftestOutput(out []byte) (PolicyResult, error) {
	var results []conftestResult
	if err := json.Unmarshal(out, &results); err != nil {
		return PolicyResult{}, errors.Wrap(err, "could not parse conftest output")
	}

	violations := []string{}
	var warnings []string
	for _, r := range results {
		for _, f := range r.Failures {
			violations = append(violations, fmt.Sprintf("%s: %s", r.Filename, f.Msg))
		}
		for _, w := range r.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", r.Filename, w.Msg))
		}
	}
	return newPolicyResult(violations, warnings), nil
}

type RegoOptions struct {
	// Paths are .rego files or directories containing them.
	Paths []string
	// Query defaults to data.main.deny.
	Query string
	Input any
}

type regoMessage struct {
	Msg string `mapstructure:"msg"`
}

// EvaluateRego evaluates a deny style rule. Every string in the resulting set, or every object with
// a msg field, is a violation.
func EvaluateRego(ctx context.Context, opts RegoOptions) (PolicyResult, error) {
	if len(opts.Paths) == 0 {
		return PolicyResult{}, errors.New("no policy paths given")
	}
	query := utils.OrDefault(utils.EmptyThenNil(opts.Query), "data.main.deny")

	r := rego.New(
		rego.Query(query),
		rego.Load(opts.Paths, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return PolicyResult{}, errors.Wrap(err, "could not prepare policy")
	}

	rs, err := prepared.Eval(ctx, rego.EvalInput(opts.Input))
	if err != nil {
		return PolicyResult{}, errors.Wrap(err, "could not evaluate policy")
	}

	violations := []string{}
	for _, result := range rs {
		for _, expr := range result.Expressions {
			msgs, err := decodeMessages(expr.Value)
			if err != nil {
				return PolicyResult{}, err
			}
			violations = append(violations, msgs...)
		}
	}
	return newPolicyResult(violations, nil), nil
}

func decodeMessages(value any) ([]string, error) {
	var items []any
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		items = v
	case bool:
		// a boolean deny rule without messages
		if v {
			return []string{"denied"}, nil
		}
		return nil, nil
	default:
		items = []any{v}
	}

	msgs := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			msgs = append(msgs, s)
			continue
		}
		var m regoMessage
		if err := mapstructure.Decode(item, &m); err != nil {
			return nil, errors.Wrap(err, "could not decode policy result")
		}
		if strings.TrimSpace(m.Msg) == "" {
			return nil, errors.Errorf("policy result %v has no msg", item)
		}
		msgs = append(msgs, m.Msg)
	}
	return msgs, nil
}
