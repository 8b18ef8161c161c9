package proc

import (
	"context"
	"fmt"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Handle identifies a process by PID plus the creation timestamp observed
// the first time it was opened, so a later PID-reuse by the OS cannot be
// mistaken for "the same process is still running".
type Handle struct {
	pid        int32
	createTime int64 // ms since epoch, as reported by the OS
}

// Open records pid's current creation timestamp. A pid that is no longer
// running by the time Open observes it yields a Handle that counts as
// already exited: WaitExit on it returns nil at once.
func Open(ctx context.Context, pid int32) (*Handle, error) {
	p, err := gopsproc.NewProcessWithContext(ctx, pid)
	if err != nil {
		return &Handle{pid: pid, createTime: -1}, nil
	}
	ct, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return &Handle{pid: pid, createTime: -1}, nil
	}
	return &Handle{pid: pid, createTime: ct}, nil
}

// WaitExit blocks until the process identified by h has exited, or until
// timeout elapses. "Exited" is identity-aware: if a later poll finds a
// process at the same PID whose creation timestamp is newer than the one
// recorded by Open, the PID has been reused by an unrelated process and
// the wait returns immediately (success) rather than waiting on the new
// occupant.
func (h *Handle) WaitExit(ctx context.Context, timeout time.Duration) error {
	if h.createTime < 0 {
		// The process was already gone when we opened the handle.
		return nil
	}

	deadline := time.Now().Add(timeout)
	const pollInterval = 200 * time.Millisecond

	for {
		exited, err := h.hasExitedOrBeenReused(ctx)
		if err != nil {
			return err
		}
		if exited {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("proc: timed out waiting for pid %d to exit", h.pid)
		}

		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Handle) hasExitedOrBeenReused(ctx context.Context) (bool, error) {
	running, err := gopsproc.PidExistsWithContext(ctx, h.pid)
	if err != nil {
		return false, fmt.Errorf("proc: checking pid %d: %w", h.pid, err)
	}
	if !running {
		return true, nil
	}

	p, err := gopsproc.NewProcessWithContext(ctx, h.pid)
	if err != nil {
		return true, nil
	}
	ct, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return true, nil
	}

	// A newer creation time at the same PID means the OS already recycled
	// it; our target has exited even though something is running there now.
	return ct > h.createTime, nil
}
