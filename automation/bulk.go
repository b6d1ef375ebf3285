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

package automation

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/l3montree-dev/devkit/utils"
)

const defaultConcurrency = 4

// BulkTask runs one shell command in every target directory.
type BulkTask struct {
	Targets     []string      `yaml:"targets" json:"targets" validate:"required,min=1,dive,required"`
	Command     string        `yaml:"command" json:"command" validate:"required"`
	Shell       string        `yaml:"shell" json:"shell"`
	Concurrency int           `yaml:"concurrency" json:"concurrency" validate:"gte=0"`
	StopOnError bool          `yaml:"stopOnError" json:"stopOnError"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
}

type BulkResult struct {
	Target   string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (r BulkResult) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// LoadBulkTask reads a task from yaml or json. Durations are written like "30s".
func LoadBulkTask(path string) (BulkTask, error) {
	var task BulkTask
	content, err := os.ReadFile(path)
	if err != nil {
		return task, errors.Wrap(err, "could not read task file")
	}
	if err := yaml.Unmarshal(content, &task); err != nil {
		return task, errors.Wrapf(err, "could not parse %s", path)
	}

	// relative targets are resolved against the task file
	base := filepath.Dir(path)
	for i, target := range task.Targets {
		if target != "" && !filepath.IsAbs(target) {
			task.Targets[i] = filepath.Join(base, target)
		}
	}
	if err := utils.Validate(task); err != nil {
		return task, err
	}
	return task, nil
}

// targetQueue hands out the index of the next target to run.
type targetQueue struct {
	mu      sync.Mutex
	pending []int
}

func (q *targetQueue) pop() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return 0, false
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	return next, true
}

func (q *targetQueue) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := len(q.pending)
	q.pending = nil
	return dropped
}

// RunBulk executes task.Command in every target. onResult is called after each finished run and
// may be nil. The results follow the order of task.Targets. With StopOnError the first failure
// empties the queue: runs already in flight finish, targets never started get no result.
func RunBulk(ctx context.Context, task BulkTask, onResult func(BulkResult)) []BulkResult {
	if len(task.Targets) == 0 {
		return []BulkResult{}
	}
	shell := task.Shell
	if shell == "" {
		shell = "sh"
	}
	workers := task.Concurrency
	if workers <= 0 {
		workers = defaultConcurrency
	}
	workers = min(workers, len(task.Targets))

	queue := &targetQueue{pending: make([]int, len(task.Targets))}
	for i := range task.Targets {
		queue.pending[i] = i
	}
	results := make([]*BulkResult, len(task.Targets))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := queue.pop()
				if !ok {
					return
				}
				res := runTarget(ctx, shell, task, task.Targets[i])
				slog.Debug("bulk target finished", "worker", w, "target", res.Target, "exitCode", res.ExitCode)

				mu.Lock()
				results[i] = &res
				if onResult != nil {
					onResult(res)
				}
				mu.Unlock()

				if res.Failed() && task.StopOnError {
					if dropped := queue.clear(); dropped > 0 {
						slog.Warn("stopping bulk run after failure", "target", res.Target, "skipped", dropped)
					}
				}
			}
		}()
	}
	wg.Wait()

	ordered := make([]BulkResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			ordered = append(ordered, *res)
		}
	}
	return ordered
}

func runTarget(ctx context.Context, shell string, task BulkTask, target string) BulkResult {
	res := BulkResult{Target: target}
	if ctx.Err() != nil {
		res.Err = ctx.Err()
		return res
	}
	out, err := utils.Runner.Run(ctx, utils.CommandOptions{
		Name:    shell,
		Args:    []string{"-c", task.Command},
		Dir:     target,
		Env:     []string{"TARGET=" + target},
		Timeout: task.Timeout,
	})
	res.ExitCode = out.ExitCode
	res.Stdout = out.Stdout
	res.Stderr = out.Stderr
	res.Err = err
	return res
}

type BulkSummary struct {
	Succeeded int
	Failed    int
}

func Summary(results []BulkResult) BulkSummary {
	var s BulkSummary
	for _, r := range results {
		if r.Failed() {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}
