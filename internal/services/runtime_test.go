package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestShellArgs(t *testing.T) {
	name, args := shellArgs("windows", "sc query")
	if name != "cmd" || len(args) != 2 || args[0] != "/C" || args[1] != "sc query" {
		t.Errorf("unexpected windows invocation %s %v", name, args)
	}

	name, args = shellArgs("linux", "echo hi")
	if name != "sh" || len(args) != 2 || args[0] != "-c" || args[1] != "echo hi" {
		t.Errorf("unexpected unix invocation %s %v", name, args)
	}
}

func TestShellRunner_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	runner := NewShellRunner()
	ctx := context.Background()

	out, err := runner.Run(ctx, "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello" {
		t.Errorf("expected 'hello', got %q", out)
	}

	out, err = runner.Run(ctx, "echo oops >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if out != "oops" {
		t.Errorf("expected combined output 'oops', got %q", out)
	}
}

func TestShellRunner_RunReturnsWithBackgroundChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	runner := NewShellRunner()
	runner.waitDelay = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if _, err := runner.Run(ctx, "sleep 4 &"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("run held the caller for %v", elapsed)
	}
}

func TestShellRunner_Spawn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	runner := NewShellRunner()
	marker := filepath.Join(t.TempDir(), "spawned")

	start := time.Now()
	if err := runner.Spawn("sleep 5 & touch " + marker); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("spawn held the caller for %v", elapsed)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("spawned command never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestHostProcesses_Running(t *testing.T) {
	procs := NewHostProcesses()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	running, err := procs.Running(ctx, "definitely-not-a-real-process.exe")
	if err != nil {
		t.Skipf("process listing unavailable: %v", err)
	}
	if running {
		t.Error("expected unknown process to not be running")
	}

	self := filepath.Base(os.Args[0])
	if len(self) > 15 {
		t.Skip("process name is truncated by the kernel")
	}
	running, err = procs.Running(ctx, self)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !running {
		t.Errorf("expected own process %q to be running", self)
	}
}

func TestHostProcesses_KillNothing(t *testing.T) {
	procs := NewHostProcesses()
	n, err := procs.Kill(context.Background(), "definitely-not-a-real-process.exe")
	if err != nil {
		t.Skipf("process listing unavailable: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing killed, got %d", n)
	}
}

func TestHostProcesses_LaunchMissing(t *testing.T) {
	procs := NewHostProcesses()
	if err := procs.Launch(filepath.Join(t.TempDir(), "missing-binary")); err == nil {
		t.Error("expected error launching missing binary")
	}
}

func TestDockerRuntime(t *testing.T) {
	docker := NewDockerRuntime()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !docker.Ping(ctx) {
		t.Skip("Docker is not available, skipping test")
	}

	_, err := docker.State(ctx, "homelab-remote-test-missing-container")
	if !errors.Is(err, ErrContainerNotFound) {
		t.Errorf("expected ErrContainerNotFound, got %v", err)
	}
}
