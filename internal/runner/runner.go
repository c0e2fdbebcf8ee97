// Package runner executes single external commands and reports their outcome.
//
// Commands are structured argument lists and never pass through a shell.
// Nothing here retries; retry policy, if any, belongs to the caller.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Command describes one process launch.
type Command struct {
	Name string
	Args []string
	Dir  string   // working directory; empty means the current one
	Env  []string // extra KEY=VALUE pairs added to the inherited environment
}

// String renders the command for logs, quoting arguments that need it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n'\"\\$`|&;<>()*?") {
		return strconv.Quote(s)
	}
	return s
}

// Output is what a finished command printed.
type Output struct {
	Stdout string
	Stderr string
}

// CommandError reports a command that could not start or exited non-zero.
// ExitCode is -1 when the process never ran.
type CommandError struct {
	Command  Command
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command %q failed to start: %v", e.Command.String(), e.Err)
	}
	msg := fmt.Sprintf("command %q exited with status %d", e.Command.String(), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner abstracts command execution so the orchestrator can be tested
// without real subprocesses.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// Run executes cmd synchronously, capturing stdout and stderr separately.
func (ExecRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	out := Output{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// killed by a signal, typically the caller's deadline
			code = 1
		}
		return out, &CommandError{Command: cmd, ExitCode: code, Stderr: out.Stderr, Err: err}
	}
	return out, &CommandError{Command: cmd, ExitCode: -1, Stderr: out.Stderr, Err: err}
}
