// Package shell runs user-visible commands produced by execute_command
// actions. Commands go through the platform shell, are bounded by a timeout,
// and have their output capped so a runaway process cannot exhaust memory.
package shell

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"codemate/internal/logging"
)

// CommandResult captures everything about a finished command.
type CommandResult struct {
	Command   string
	ExitCode  int
	Stdout    string
	Stderr    string
	Duration  time.Duration
	TimedOut  bool
	Cancelled bool
	Truncated bool
}

// AuditEvent describes one command execution for audit consumers.
type AuditEvent struct {
	Command   string
	ExitCode  int
	TimedOut  bool
	Duration  time.Duration
	Timestamp time.Time
}

// Options bound a runner's executions.
type Options struct {
	WorkingDir     string
	Timeout        time.Duration
	MaxOutputBytes int64
}

// DefaultOptions returns the standard execution bounds.
func DefaultOptions() Options {
	return Options{
		Timeout:        30 * time.Second,
		MaxOutputBytes: 1 << 20, // 1 MiB per stream
	}
}

// Runner executes shell commands with the configured bounds.
type Runner struct {
	mu   sync.RWMutex
	opts Options

	auditCallback func(AuditEvent)
}

// NewRunner builds a runner, filling in zero-valued options with defaults.
func NewRunner(opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = 1 << 20
	}
	return &Runner{opts: opts}
}

// SetAuditCallback registers a callback invoked after every execution.
func (r *Runner) SetAuditCallback(callback func(AuditEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditCallback = callback
}

func (r *Runner) emitAudit(event AuditEvent) {
	r.mu.RLock()
	callback := r.auditCallback
	r.mu.RUnlock()
	if callback != nil {
		callback(event)
	}
}

// Run executes command through the platform shell and returns the result.
// A non-zero exit code is not an error; only infrastructure failures are.
func (r *Runner) Run(ctx context.Context, command string) (*CommandResult, error) {
	timer := logging.StartTimer(logging.CategoryShell, "run "+command)
	defer timer.Stop()

	logging.Shell("executing: %s", command)

	execCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(execCtx, "sh", "-c", command)
	}
	cmd.Dir = r.opts.WorkingDir
	// A killed shell can leave children holding the output pipes open; bound
	// how long Wait drains them so a timeout returns promptly.
	cmd.WaitDelay = time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: r.opts.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: r.opts.MaxOutputBytes}
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited

	started := time.Now()
	err := cmd.Run()
	duration := time.Since(started)

	result := &CommandResult{
		Command:   command,
		ExitCode:  0,
		Stdout:    stdoutBuf.String(),
		Stderr:    stderrBuf.String(),
		Duration:  duration,
		Truncated: stdoutLimited.truncated || stderrLimited.truncated,
	}
	if result.Truncated {
		logging.ShellWarn("output truncated for: %s", command)
	}

	if err != nil {
		switch {
		case execCtx.Err() == context.DeadlineExceeded:
			result.TimedOut = true
			result.ExitCode = -1
			logging.ShellWarn("command timed out after %s: %s", r.opts.Timeout, command)
		case execCtx.Err() == context.Canceled:
			result.Cancelled = true
			result.ExitCode = -1
			logging.ShellDebug("command cancelled: %s", command)
		default:
			if exitErr, ok := err.(*exec.ExitError); ok {
				result.ExitCode = exitErr.ExitCode()
				logging.ShellDebug("command exited non-zero: %s -> %d", command, result.ExitCode)
			} else {
				logging.ShellError("command failed to start: %s - %v", command, err)
				return nil, err
			}
		}
	}

	r.emitAudit(AuditEvent{
		Command:   command,
		ExitCode:  result.ExitCode,
		TimedOut:  result.TimedOut,
		Duration:  duration,
		Timestamp: time.Now(),
	})

	logging.Shell("completed: %s -> exit=%d, duration=%s", command, result.ExitCode, duration)
	return result, nil
}

// limitedWriter caps total bytes written, discarding the overflow while
// reporting full writes so the process never sees a short-write error.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
