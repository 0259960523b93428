// Package spotdl runs the external download tool as a subprocess.
package spotdl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrDeadlineExceeded is returned when the tool outlives the configured timeout.
	ErrDeadlineExceeded = errors.New("download tool deadline exceeded")
	// ErrToolUnavailable is returned by Version when the tool cannot report its version.
	ErrToolUnavailable = errors.New("download tool unavailable")
)

// Command is one tool invocation.
type Command struct {
	Path string   // Binary name or path
	Args []string // Arguments, not including Path
	Dir  string   // Working directory
}

// String renders the command for logging.
func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// LineFunc receives one line of tool output.
type LineFunc func(line string)

// Result holds independently captured output for RunCaptured.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner starts tool processes and waits for them to exit.
type Runner struct {
	timeout   time.Duration
	waitDelay time.Duration
	log       *slog.Logger
}

// NewRunner creates a runner. A zero timeout means the tool may run indefinitely.
func NewRunner(timeout time.Duration, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		timeout:   timeout,
		waitDelay: 5 * time.Second,
		log:       log.With("component", "spotdl"),
	}
}

func (r *Runner) command(ctx context.Context, c Command) (*exec.Cmd, context.Context, context.CancelFunc) {
	cancel := context.CancelFunc(func() {})
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = r.waitDelay
	killGroup(cmd)
	return cmd, ctx, cancel
}

// Run executes c with stdout and stderr merged into one ordered stream, passing
// each line to sink as it is produced. It returns the exit code once the process
// has been waited on. A non-nil error means the process could not be run to
// completion; a non-zero exit code alone is not an error.
func (r *Runner) Run(ctx context.Context, c Command, sink LineFunc) (int, error) {
	cmd, ctx, cancel := r.command(ctx, c)
	defer cancel()

	// One pipe for both streams keeps the kernel's write ordering.
	pr, pw, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("create output pipe: %w", err)
	}
	defer func() { _ = pr.Close() }()
	cmd.Stdout = pw
	cmd.Stderr = pw

	r.log.Debug("starting tool", "command", c.String(), "dir", c.Dir)
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return -1, fmt.Errorf("start %s: %w", c.Path, err)
	}
	// The child holds its own copy; closing ours lets the reader see EOF.
	_ = pw.Close()

	// A descendant outside the process group can keep the pipe open after the
	// kill. Stop reading once it has had WaitDelay to exit.
	stop := context.AfterFunc(ctx, func() {
		time.AfterFunc(r.waitDelay, func() { _ = pr.Close() })
	})
	defer stop()

	streamErr := scanLines(pr, sink)
	if streamErr != nil {
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, pr)
	}
	waitErr := cmd.Wait()
	return r.exitStatus(ctx, cmd, waitErr, streamErr)
}

// RunCaptured executes c capturing stdout and stderr separately, for callers
// that report the tool's error text rather than streaming it.
func (r *Runner) RunCaptured(ctx context.Context, c Command) (*Result, error) {
	cmd, ctx, cancel := r.command(ctx, c)
	defer cancel()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("starting tool", "command", c.String(), "dir", c.Dir, "mode", "captured")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.Path, err)
	}
	code, err := r.exitStatus(ctx, cmd, cmd.Wait(), nil)
	if err != nil {
		return nil, err
	}
	return &Result{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// Version runs "binary --version" and returns the first line it prints.
func (r *Runner) Version(ctx context.Context, binary string) (string, error) {
	res, err := r.RunCaptured(ctx, Command{Path: binary, Args: []string{"--version"}})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrToolUnavailable, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%w: %s --version exited %d: %s",
			ErrToolUnavailable, binary, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	line, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	return strings.TrimSpace(line), nil
}

func (r *Runner) exitStatus(ctx context.Context, cmd *exec.Cmd, waitErr, streamErr error) (int, error) {
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.Exited() {
			return exitErr.ExitCode(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return -1, fmt.Errorf("%w after %s", ErrDeadlineExceeded, r.timeout)
			}
			return -1, ctxErr
		}
		return -1, fmt.Errorf("wait: %w", waitErr)
	}
	if streamErr != nil {
		return cmd.ProcessState.ExitCode(), fmt.Errorf("read tool output: %w", streamErr)
	}
	return cmd.ProcessState.ExitCode(), nil
}

func scanLines(rd io.Reader, sink LineFunc) error {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if sink != nil {
			sink(strings.TrimRight(scanner.Text(), "\r"))
		}
	}
	return scanner.Err()
}
