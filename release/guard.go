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

package release

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/l3montree-dev/devkit/security"
)

type FreezeWindow struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason"`
}

func (w FreezeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type RolloutInput struct {
	Branch string `json:"branch"`
	// AllowedBranches accepts glob patterns like "release/*". Empty allows every branch.
	AllowedBranches  []string        `json:"allowedBranches"`
	WorkingTreeClean bool            `json:"workingTreeClean"`
	Checks           map[string]bool `json:"checks"`
	ErrorRate        float64         `json:"errorRate"`
	// MaxErrorRate of 0 disables the error rate rule.
	MaxErrorRate       float64        `json:"maxErrorRate"`
	FreezeWindows      []FreezeWindow `json:"freezeWindows"`
	Now                time.Time      `json:"now"`
	RequireSignedImage bool           `json:"requireSignedImage"`
	ImageSignatures    int            `json:"imageSignatures"`
}

type RolloutDecision struct {
	Allow   bool     `json:"allow"`
	Reasons []string `json:"reasons"`
}

func newDecision(reasons []string) RolloutDecision {
	if reasons == nil {
		reasons = []string{}
	}
	return RolloutDecision{Allow: len(reasons) == 0, Reasons: reasons}
}

func branchAllowed(branch string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, pattern := range allowed {
		if ok, err := path.Match(pattern, branch); err == nil && ok {
			return true
		}
	}
	return false
}

// EvaluateRollout applies the built-in rules. Every failing rule adds one reason.
func EvaluateRollout(input RolloutInput) RolloutDecision {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	var reasons []string
	if !branchAllowed(input.Branch, input.AllowedBranches) {
		reasons = append(reasons, fmt.Sprintf("branch %q is not allowed to roll out", input.Branch))
	}
	if !input.WorkingTreeClean {
		reasons = append(reasons, "working tree has uncommitted changes")
	}

	failed := make([]string, 0)
	for name, ok := range input.Checks {
		if !ok {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	for _, name := range failed {
		reasons = append(reasons, fmt.Sprintf("check %s failed", name))
	}

	if input.MaxErrorRate > 0 && input.ErrorRate > input.MaxErrorRate {
		reasons = append(reasons, fmt.Sprintf("error rate %.2f%% exceeds the maximum of %.2f%%", input.ErrorRate*100, input.MaxErrorRate*100))
	}
	for _, w := range input.FreezeWindows {
		if w.Contains(now) {
			reasons = append(reasons, fmt.Sprintf("deployment freeze until %s: %s", w.End.Format(time.RFC3339), w.Reason))
		}
	}
	if input.RequireSignedImage && input.ImageSignatures == 0 {
		reasons = append(reasons, "image is not signed")
	}
	return newDecision(reasons)
}

// EvaluateRolloutPolicy adds the messages of data.rollout.deny from the given rego policies.
func EvaluateRolloutPolicy(ctx context.Context, decision RolloutDecision, policyPaths []string, input RolloutInput) (RolloutDecision, error) {
	if len(policyPaths) == 0 {
		return decision, nil
	}
	res, err := security.EvaluateRego(ctx, security.RegoOptions{
		Paths: policyPaths,
		Query: "data.rollout.deny",
		Input: input,
	})
	if err != nil {
		return decision, err
	}
	return newDecision(append(decision.Reasons, res.Violations...)), nil
}
