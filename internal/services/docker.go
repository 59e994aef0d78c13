package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// ErrContainerNotFound is returned when no container has the requested name.
var ErrContainerNotFound = errors.New("container not found")

// DockerRuntime implements ContainerRuntime against the local Docker daemon.
type DockerRuntime struct{}

// NewDockerRuntime creates a new DockerRuntime instance.
func NewDockerRuntime() *DockerRuntime {
	return &DockerRuntime{}
}

// getClient creates a new Docker client.
func (r *DockerRuntime) getClient() (*client.Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// Ping reports whether the Docker daemon answers.
func (r *DockerRuntime) Ping(ctx context.Context) bool {
	cli, err := r.getClient()
	if err != nil {
		return false
	}
	defer func() { _ = cli.Close() }()

	_, err = cli.Ping(ctx)
	return err == nil
}

// State returns the container state, e.g. "running" or "exited".
func (r *DockerRuntime) State(ctx context.Context, name string) (string, error) {
	cli, err := r.getClient()
	if err != nil {
		return "", fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer func() { _ = cli.Close() }()

	info, err := cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrContainerNotFound, name)
		}
		return "", fmt.Errorf("failed to inspect container: %w", err)
	}
	if info.State == nil {
		return "", nil
	}
	return info.State.Status, nil
}

// Start starts the named container.
func (r *DockerRuntime) Start(ctx context.Context, name string) error {
	cli, err := r.getClient()
	if err != nil {
		return fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer func() { _ = cli.Close() }()

	if err := cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, name)
		}
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

// Stop stops the named container. A nil timeout uses the daemon default.
func (r *DockerRuntime) Stop(ctx context.Context, name string, timeout *int) error {
	cli, err := r.getClient()
	if err != nil {
		return fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer func() { _ = cli.Close() }()

	stopOptions := container.StopOptions{}
	if timeout != nil {
		stopOptions.Timeout = timeout
	}

	if err := cli.ContainerStop(ctx, name, stopOptions); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, name)
		}
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}
