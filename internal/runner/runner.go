// Package runner executes external commands and captures structured results.
// The fetch pipeline uses it to hand the extracted word to the addword
// companion and inspect its exit status and output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"wordfetch/internal/logging"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run.
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in. Empty means inherit.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables in KEY=VALUE form, appended to the inherited
	// environment.
	Environment []string `json:"environment,omitempty"`

	// Timeout bounds execution. Zero means the executor default.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// CommandString returns the full command for display and logging.
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult captures what happened when a command ran.
type ExecutionResult struct {
	Success  bool          `json:"success"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Combined string        `json:"combined"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// OutputContains reports whether the combined output contains the marker.
// Used for the duplicate-word check on addword's output.
func (r *ExecutionResult) OutputContains(marker string) bool {
	return strings.Contains(r.Combined, marker)
}

// Executor runs commands directly on the host.
type Executor struct {
	defaultTimeout time.Duration
	maxOutputBytes int64
}

// NewExecutor creates an executor with a default timeout.
func NewExecutor(defaultTimeout time.Duration) *Executor {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &Executor{
		defaultTimeout: defaultTimeout,
		maxOutputBytes: 1 << 20,
	}
}

// Execute runs a command and captures its output. A non-zero exit is not an
// error: the result carries the exit code and the caller decides.
func (e *Executor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("binary is required")
	}

	timer := logging.StartTimer(logging.CategoryExec, "command execution")
	defer timer.Stop()
	logging.Exec("executing: %s", cmd.CommandString())

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Arguments...)
	c.Dir = cmd.WorkingDirectory
	if len(cmd.Environment) > 0 {
		c.Env = append(c.Environ(), cmd.Environment...)
	}

	// os/exec copies stdout and stderr on separate goroutines, so the two
	// writers must not share a buffer. Combined is assembled after Run.
	var stdout, stderr bytes.Buffer
	c.Stdout = newCappedWriter(&stdout, e.maxOutputBytes)
	c.Stderr = newCappedWriter(&stderr, e.maxOutputBytes)

	start := time.Now()
	err := c.Run()
	result := &ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	result.Combined = result.Stdout + result.Stderr

	switch {
	case err == nil:
		result.Success = true
		result.ExitCode = 0
	case ctx.Err() != nil:
		result.ExitCode = -1
		result.Error = fmt.Sprintf("timed out after %v", timeout)
		logging.ExecWarn("command timed out: %s", cmd.CommandString())
		return result, fmt.Errorf("command timed out after %v: %s", timeout, cmd.CommandString())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.Error = err.Error()
			logging.ExecDebug("command exited %d: %s", result.ExitCode, cmd.CommandString())
		} else {
			result.ExitCode = -1
			result.Error = err.Error()
			return result, fmt.Errorf("command failed to start: %w", err)
		}
	}

	return result, nil
}

// cappedWriter drops bytes past the cap.
type cappedWriter struct {
	buf    *bytes.Buffer
	remain int64
}

func newCappedWriter(buf *bytes.Buffer, limit int64) *cappedWriter {
	return &cappedWriter{buf: buf, remain: limit}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if w.remain <= 0 {
		return n, nil
	}
	if int64(n) > w.remain {
		p = p[:w.remain]
	}
	w.remain -= int64(len(p))
	w.buf.Write(p)
	return n, nil
}
