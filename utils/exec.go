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

package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrToolNotFound = errors.New("tool not found in PATH")

type CommandOptions struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is appended to the environment of the current process.
	Env   []string
	Stdin io.Reader
	// ThrowOnError turns a non-zero exit code into a *CommandError.
	ThrowOnError bool
	Timeout      time.Duration
}

type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

type CommandError struct {
	Name     string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s exited with code %d", e.Name, strings.Join(e.Args, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	if stdout := strings.TrimSpace(e.Stdout); stdout != "" {
		msg += " (stdout: " + stdout + ")"
	}
	return msg
}

type CommandRunner interface {
	Run(ctx context.Context, opts CommandOptions) (CommandResult, error)
}

// Runner executes every external tool. Tests replace it with a mock.
var Runner CommandRunner = execRunner{}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, opts CommandOptions) (CommandResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, opts.Name, opts.Args...) // nolint:gosec // runs on the client with arguments the user controls
	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin
	cmd.WaitDelay = time.Second
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	slog.Debug("running command", "cmd", opts.Name, "args", opts.Args, "dir", opts.Dir)
	err := cmd.Run()

	res := CommandResult{
		Stdout: out.String(),
		Stderr: errOut.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			if errors.Is(err, exec.ErrNotFound) {
				return res, errors.Wrap(ErrToolNotFound, opts.Name)
			}
			return res, errors.Wrapf(err, "could not run %s", opts.Name)
		}
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			return res, errors.Wrapf(ctx.Err(), "%s did not finish", opts.Name)
		}
	}

	if res.ExitCode != 0 && opts.ThrowOnError {
		return res, &CommandError{
			Name:     opts.Name,
			Args:     opts.Args,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}

	return res, nil
}

// RunCommand runs name with args in dir and fails on a non-zero exit code.
func RunCommand(ctx context.Context, dir string, name string, args ...string) (CommandResult, error) {
	return Runner.Run(ctx, CommandOptions{
		Name:         name,
		Args:         args,
		Dir:          dir,
		ThrowOnError: true,
	})
}

func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// FirstLine returns the first non-empty line of s.
func FirstLine(s string) string {
	for line := range strings.SplitSeq(s, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}
