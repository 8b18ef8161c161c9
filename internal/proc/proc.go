package proc

import (
	"context"
	"fmt"
	"os"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Match is one process whose executable resolves under a target directory.
type Match struct {
	PID  int32
	Path string
}

// InDirectory enumerates all processes whose executable image path is a
// sub-path of dir. The current process is never excluded here -- callers
// that intend to kill (Stop) exclude it explicitly, since read-only
// enumeration legitimately includes self (e.g. for diagnostics).
func InDirectory(ctx context.Context, dir string) ([]Match, error) {
	procs, err := gopsproc.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("proc: listing processes: %w", err)
	}

	var matches []Match
	for _, p := range procs {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			continue
		}
		if IsSubPath(exe, dir) {
			matches = append(matches, Match{PID: p.Pid, Path: exe})
		}
	}
	return matches, nil
}

// stopRetryBackoffs are the four retries with increasing back-off:
// processes in the tree may be spawning children as we kill
// them, so a single enumerate-and-kill pass is not reliable.
var stopRetryBackoffs = []time.Duration{
	333 * time.Millisecond,
	666 * time.Millisecond,
	1 * time.Second,
	1 * time.Second,
}

// StopAllInDirectory forcibly terminates every process whose executable is
// under dir, except the current process, retrying up to four times with
// the backoffs above to catch processes spawned mid-kill. It returns the
// matches still alive after the final attempt (empty on full success).
func StopAllInDirectory(ctx context.Context, dir string) ([]Match, error) {
	self := int32(os.Getpid())

	var remaining []Match
	for attempt := 0; ; attempt++ {
		matches, err := InDirectory(ctx, dir)
		if err != nil {
			return nil, err
		}

		remaining = remaining[:0]
		for _, m := range matches {
			if m.PID == self {
				continue
			}
			if err := terminate(m.PID); err != nil {
				remaining = append(remaining, m)
			}
		}

		if len(remaining) == 0 {
			return nil, nil
		}
		if attempt >= len(stopRetryBackoffs) {
			return remaining, nil
		}

		select {
		case <-time.After(stopRetryBackoffs[attempt]):
		case <-ctx.Done():
			return remaining, ctx.Err()
		}
	}
}
