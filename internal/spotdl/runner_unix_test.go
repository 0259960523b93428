//go:build unix

package spotdl

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	platformHelpers["spawn"] = func([]string) { spawnSleeper(false) }
	platformHelpers["spawn-detached"] = func([]string) { spawnSleeper(true) }
}

// spawnSleeper starts a grandchild sharing this process's output, then sleeps.
func spawnSleeper(detach bool) {
	child := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--", "sleep", "3s")
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	if detach {
		child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}
	if err := child.Start(); err != nil {
		os.Exit(4)
	}
	time.Sleep(10 * time.Second)
}

func TestRun_TimeoutKillsProcessGroup(t *testing.T) {
	r := NewRunner(200*time.Millisecond, nil)

	start := time.Now()
	_, err := r.Run(context.Background(), helperCommand(t, "spawn"), nil)
	assert.True(t, errors.Is(err, ErrDeadlineExceeded), "got %v", err)
	// The grandchild holds the pipe for 3s unless it was killed with the group.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_TimeoutStopsReadingDetachedDescendant(t *testing.T) {
	r := NewRunner(200*time.Millisecond, nil)
	r.waitDelay = 200 * time.Millisecond

	start := time.Now()
	_, err := r.Run(context.Background(), helperCommand(t, "spawn-detached"), nil)
	assert.True(t, errors.Is(err, ErrDeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunCaptured_TimeoutKillsProcessGroup(t *testing.T) {
	r := NewRunner(200*time.Millisecond, nil)

	start := time.Now()
	_, err := r.RunCaptured(context.Background(), helperCommand(t, "spawn"))
	assert.True(t, errors.Is(err, ErrDeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spotdl")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestVersion(t *testing.T) {
	bin := writeScript(t, `[ "$1" = "--version" ] || exit 9
echo 4.2.5
echo "extra detail"
`)
	got, err := NewRunner(5*time.Second, nil).Version(context.Background(), bin)
	require.NoError(t, err)
	assert.Equal(t, "4.2.5", got)
}

func TestVersion_NonZeroExit(t *testing.T) {
	bin := writeScript(t, `echo "No module named spotdl" >&2
exit 1
`)
	_, err := NewRunner(5*time.Second, nil).Version(context.Background(), bin)
	assert.True(t, errors.Is(err, ErrToolUnavailable), "got %v", err)
	assert.Contains(t, err.Error(), "No module named spotdl")
}
