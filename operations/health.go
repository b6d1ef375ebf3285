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
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/l3montree-dev/devkit/utils"
)

const (
	defaultHealthTimeout   = 5 * time.Second
	maxParallelHealthCheck = 16
)

// Duration reads "5s" style strings or plain numbers of seconds from json.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", s)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(b, &seconds); err != nil {
		return errors.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

type HealthTarget struct {
	Name           string   `json:"name" validate:"required"`
	URL            string   `json:"url" validate:"required,url"`
	Method         string   `json:"method" validate:"oneof=GET HEAD POST"`
	ExpectedStatus int      `json:"expectedStatus" validate:"min=100,max=599"`
	Timeout        Duration `json:"timeout" validate:"gte=0"`
}

func (t HealthTarget) withDefaults() HealthTarget {
	if t.Method == "" {
		t.Method = http.MethodGet
	}
	t.Method = strings.ToUpper(t.Method)
	if t.ExpectedStatus == 0 {
		t.ExpectedStatus = http.StatusOK
	}
	if t.Timeout <= 0 {
		t.Timeout = Duration(defaultHealthTimeout)
	}
	return t
}

type HealthResult struct {
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	Healthy    bool          `json:"healthy"`
	StatusCode int           `json:"statusCode"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
}

// ParseHealthTarget reads "name=url". Without a name the url is used as name, a "=" in the
// query of an unnamed url does not start a name.
func ParseHealthTarget(s string) (HealthTarget, error) {
	name, url, ok := strings.Cut(s, "=")
	if !ok || strings.Contains(name, "://") {
		name, url = s, s
	}
	t := HealthTarget{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)}.withDefaults()
	if err := utils.Validate(t); err != nil {
		return HealthTarget{}, err
	}
	return t, nil
}

// LoadHealthTargets reads a json list of targets and validates each of them.
func LoadHealthTargets(path string) ([]HealthTarget, error) {
	targets, err := utils.ReadJSON[[]HealthTarget](path)
	if err != nil {
		return nil, err
	}
	for i := range targets {
		targets[i] = targets[i].withDefaults()
		if err := utils.Validate(targets[i]); err != nil {
			return nil, errors.Wrapf(err, "invalid health target %d", i)
		}
	}
	return targets, nil
}

func checkTarget(ctx context.Context, client *http.Client, target HealthTarget) HealthResult {
	target = target.withDefaults()
	res := HealthResult{Name: target.Name, URL: target.URL}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(target.Timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, target.Method, target.URL, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	res.StatusCode = resp.StatusCode
	res.Healthy = resp.StatusCode == target.ExpectedStatus
	if !res.Healthy {
		res.Error = "unexpected status " + resp.Status
	}
	return res
}

// CheckHealth probes all targets concurrently. The results have the order of targets.
func CheckHealth(ctx context.Context, client *http.Client, targets []HealthTarget) []HealthResult {
	if client == nil {
		client = http.DefaultClient
	}
	results := make([]HealthResult, len(targets))

	var g errgroup.Group
	g.SetLimit(maxParallelHealthCheck)
	for i, target := range targets {
		g.Go(func() error {
			results[i] = checkTarget(ctx, client, target)
			slog.Debug("health check finished", "name", target.Name, "healthy", results[i].Healthy, "latency", results[i].Latency)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// WaitHealthy polls target at most once per interval until it is healthy or ctx is done.
func WaitHealthy(ctx context.Context, client *http.Client, target HealthTarget, interval time.Duration) (HealthResult, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if interval <= 0 {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var last HealthResult
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return last, errors.Wrapf(err, "%s did not become healthy after %d attempts", target.Name, attempt-1)
		}
		last = checkTarget(ctx, client, target)
		if last.Healthy {
			return last, nil
		}
		slog.Debug("waiting for target", "name", target.Name, "attempt", attempt, "error", last.Error)
	}
}
