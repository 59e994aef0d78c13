package services

import "context"

// ContainerRuntime drives containers by name.
type ContainerRuntime interface {
	State(ctx context.Context, name string) (string, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string, timeout *int) error
}

// ProcessManager finds, launches and kills host processes by image name.
type ProcessManager interface {
	Running(ctx context.Context, name string) (bool, error)
	Launch(path string, args ...string) error
	Kill(ctx context.Context, name string) (int, error)
}

// CommandRunner runs host commands and returns their combined output.
type CommandRunner interface {
	// Run executes command through the platform shell.
	Run(ctx context.Context, command string) (string, error)
	// Exec executes name with args directly.
	Exec(ctx context.Context, name string, args ...string) (string, error)
	// Spawn starts command through the platform shell without waiting for it.
	Spawn(command string) error
}
