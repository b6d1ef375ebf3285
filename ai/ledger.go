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

package ai

import (
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/l3montree-dev/devkit/utils"
)

const DefaultLedgerFile = "ai-tokens.json"

type Budget struct {
	MonthlyTokens int `json:"monthlyTokens"`
}

type UsageEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Model        string    `json:"model" validate:"required"`
	Task         string    `json:"task"`
	InputTokens  int       `json:"inputTokens" validate:"gte=0"`
	OutputTokens int       `json:"outputTokens" validate:"gte=0"`
}

func (e UsageEntry) Total() int {
	return e.InputTokens + e.OutputTokens
}

type Ledger struct {
	Budget  Budget       `json:"budget"`
	Entries []UsageEntry `json:"entries"`
}

// LoadLedger reads the ledger at path. A missing file is an empty ledger.
func LoadLedger(path string) (Ledger, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Ledger{Entries: []UsageEntry{}}, nil
	}
	ledger, err := utils.ReadJSON[Ledger](path)
	if err != nil {
		return ledger, err
	}
	if ledger.Entries == nil {
		ledger.Entries = []UsageEntry{}
	}
	return ledger, nil
}

// RecordUsage appends entry to the ledger at path. A zero timestamp is set to now.
func RecordUsage(path string, entry UsageEntry) (Ledger, error) {
	if err := utils.Validate(entry); err != nil {
		return Ledger{}, err
	}
	ledger, err := LoadLedger(path)
	if err != nil {
		return ledger, err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	ledger.Entries = append(ledger.Entries, entry)
	if err := utils.WriteJSON(path, ledger); err != nil {
		return ledger, errors.Wrap(err, "could not write ledger")
	}
	return ledger, nil
}

type UsageTotal struct {
	Name         string `json:"name"`
	Requests     int    `json:"requests"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
}

func (t UsageTotal) Total() int {
	return t.InputTokens + t.OutputTokens
}

type UsageSummary struct {
	Since        time.Time    `json:"since"`
	Requests     int          `json:"requests"`
	InputTokens  int          `json:"inputTokens"`
	OutputTokens int          `json:"outputTokens"`
	ByModel      []UsageTotal `json:"byModel"`
	ByTask       []UsageTotal `json:"byTask"`
	// BudgetRemaining is the monthly budget minus the tokens used since Since, never below zero.
	BudgetRemaining int  `json:"budgetRemaining"`
	OverBudget      bool `json:"overBudget"`
}

func (s UsageSummary) TotalTokens() int {
	return s.InputTokens + s.OutputTokens
}

// Summarize totals the entries at or after since per model and per task. A ledger without a
// budget is never over budget.
func Summarize(ledger Ledger, since time.Time) UsageSummary {
	summary := UsageSummary{Since: since}
	byModel := map[string]*UsageTotal{}
	byTask := map[string]*UsageTotal{}

	add := func(m map[string]*UsageTotal, name string, e UsageEntry) {
		t, ok := m[name]
		if !ok {
			t = &UsageTotal{Name: name}
			m[name] = t
		}
		t.Requests++
		t.InputTokens += e.InputTokens
		t.OutputTokens += e.OutputTokens
	}

	for _, e := range ledger.Entries {
		if e.Timestamp.Before(since) {
			continue
		}
		summary.Requests++
		summary.InputTokens += e.InputTokens
		summary.OutputTokens += e.OutputTokens
		add(byModel, e.Model, e)
		task := e.Task
		if task == "" {
			task = "unspecified"
		}
		add(byTask, task, e)
	}

	summary.ByModel = sortedTotals(byModel)
	summary.ByTask = sortedTotals(byTask)

	if budget := ledger.Budget.MonthlyTokens; budget > 0 {
		summary.BudgetRemaining = max(budget-summary.TotalTokens(), 0)
		summary.OverBudget = summary.TotalTokens() > budget
	}
	return summary
}

// sortedTotals orders by token usage, highest first.
func sortedTotals(m map[string]*UsageTotal) []UsageTotal {
	res := make([]UsageTotal, 0, len(m))
	for _, t := range m {
		res = append(res, *t)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Total() != res[j].Total() {
			return res[i].Total() > res[j].Total()
		}
		return res[i].Name < res[j].Name
	})
	return res
}
