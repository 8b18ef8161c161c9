package proc

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitExitReturnsOnceChildProcessExits(t *testing.T) {
	ctx := context.Background()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", "exit", "0")
	} else {
		cmd = exec.Command("true")
	}
	require.NoError(t, cmd.Start())

	h, err := Open(ctx, int32(cmd.Process.Pid))
	require.NoError(t, err)

	require.NoError(t, cmd.Wait())

	assert.NoError(t, h.WaitExit(ctx, 5*time.Second))
}

func TestWaitExitOnAlreadyExitedPidIsImmediate(t *testing.T) {
	ctx := context.Background()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", "exit", "0")
	} else {
		cmd = exec.Command("true")
	}
	require.NoError(t, cmd.Run())

	// Property #7: a Handle opened for a pid that is no longer running by
	// the time Open observes it is treated as already exited, never as a
	// live process whose new occupant we'd wait on by mistake.
	h, err := Open(ctx, int32(cmd.Process.Pid))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.WaitExit(ctx, 5*time.Second) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitExit did not return promptly for an already-exited pid")
	}
}
