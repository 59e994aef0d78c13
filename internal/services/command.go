package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// defaultWaitDelay bounds how long Exec waits for output after the command
// exits or its context ends. Children a command backgrounds keep the output
// pipe open.
const defaultWaitDelay = 2 * time.Second

// ShellRunner implements CommandRunner with os/exec.
type ShellRunner struct {
	goos      string
	waitDelay time.Duration
}

// NewShellRunner creates a ShellRunner for the current platform.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{goos: runtime.GOOS, waitDelay: defaultWaitDelay}
}

// shellArgs returns the shell invocation for command on goos.
func shellArgs(goos, command string) (string, []string) {
	if goos == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}

func (r *ShellRunner) Run(ctx context.Context, command string) (string, error) {
	name, args := shellArgs(r.goos, command)
	return r.Exec(ctx, name, args...)
}

func (r *ShellRunner) Exec(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.waitDelay

	out, err := cmd.CombinedOutput()
	if errors.Is(err, exec.ErrWaitDelay) {
		err = nil
	}
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output != "" {
			return output, fmt.Errorf("%s: %w: %s", name, err, output)
		}
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

// Spawn starts command detached from the caller. Its output is discarded
// and it outlives the request that started it.
func (r *ShellRunner) Spawn(command string) error {
	name, args := shellArgs(r.goos, command)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn %q: %w", command, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
