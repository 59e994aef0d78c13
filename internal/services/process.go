package services

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// HostProcesses implements ProcessManager using gopsutil.
type HostProcesses struct{}

// NewHostProcesses creates a new HostProcesses instance.
func NewHostProcesses() *HostProcesses {
	return &HostProcesses{}
}

// Running reports whether any process has the given image name.
func (h *HostProcesses) Running(ctx context.Context, name string) (bool, error) {
	procs, err := h.find(ctx, name)
	if err != nil {
		return false, err
	}
	return len(procs) > 0, nil
}

// Launch starts path detached from the request. The child is reaped in the
// background so it never lingers as a zombie.
func (h *HostProcesses) Launch(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Kill terminates every process with the given image name and returns how
// many were killed.
func (h *HostProcesses) Kill(ctx context.Context, name string) (int, error) {
	procs, err := h.find(ctx, name)
	if err != nil {
		return 0, err
	}

	killed := 0
	var lastErr error
	for _, p := range procs {
		if err := p.KillWithContext(ctx); err != nil {
			lastErr = err
			continue
		}
		killed++
	}
	if killed == 0 && lastErr != nil {
		return 0, fmt.Errorf("failed to kill %s: %w", name, lastErr)
	}
	return killed, nil
}

func (h *HostProcesses) find(ctx context.Context, name string) ([]*process.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var matches []*process.Process
	for _, p := range procs {
		pname, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.EqualFold(pname, name) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}
