package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/models"
	"github.com/pandeptwidyaop/homelab-remote/internal/probe"
)

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrUnknownKind     = errors.New("unknown service kind")
)

// PortChecker reports whether a TCP port accepts connections.
type PortChecker func(ctx context.Context, host string, port int, timeout time.Duration) bool

// ServiceController probes and dispatches start/stop actions to the
// configured services according to their kind.
type ServiceController struct {
	cfg        *config.Config
	containers ContainerRuntime
	processes  ProcessManager
	commands   CommandRunner
	audit      *AuditService
	portCheck  PortChecker
	goos       string
}

// NewServiceController creates a new ServiceController instance.
func NewServiceController(cfg *config.Config, containers ContainerRuntime, processes ProcessManager, commands CommandRunner, audit *AuditService) *ServiceController {
	return &ServiceController{
		cfg:        cfg,
		containers: containers,
		processes:  processes,
		commands:   commands,
		audit:      audit,
		portCheck:  probe.IsPortOpen,
		goos:       runtime.GOOS,
	}
}

// SetPortChecker replaces the TCP probe used by Probe.
func (c *ServiceController) SetPortChecker(fn PortChecker) {
	c.portCheck = fn
}

// SetGOOS overrides the platform used to pick the host service manager.
func (c *ServiceController) SetGOOS(goos string) {
	c.goos = goos
}

// Services returns the configured services in config order.
func (c *ServiceController) Services() []config.ServiceConfig {
	return c.cfg.Services
}

// Find returns the configured service with the given ID.
func (c *ServiceController) Find(id string) (*config.ServiceConfig, bool) {
	return c.cfg.FindService(id)
}

// Probe checks the port and the runtime of a single service.
func (c *ServiceController) Probe(ctx context.Context, svc *config.ServiceConfig) models.ServiceStatus {
	status := models.ServiceStatus{
		ID:         svc.ID,
		RequireAll: svc.RequireAll,
		CheckedAt:  time.Now(),
	}

	status.PortOpen = c.portCheck(ctx, "127.0.0.1", svc.Port, c.cfg.Poller.GetPortTimeout())

	running, err := c.running(ctx, svc)
	if err != nil && !errors.Is(err, ErrContainerNotFound) {
		status.Error = err.Error()
	}
	status.Running = running

	if svc.RequireAll {
		status.Up = status.PortOpen && status.Running
	} else {
		status.Up = status.PortOpen || status.Running
	}
	return status
}

// ProbeAll probes every service concurrently.
func (c *ServiceController) ProbeAll(ctx context.Context) []models.ServiceStatus {
	statuses := make([]models.ServiceStatus, len(c.cfg.Services))

	var wg sync.WaitGroup
	for i := range c.cfg.Services {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = c.Probe(ctx, &c.cfg.Services[i])
		}(i)
	}
	wg.Wait()

	return statuses
}

// running is the runtime half of a probe. Kinds without a runtime check
// report false so the port alone decides.
func (c *ServiceController) running(ctx context.Context, svc *config.ServiceConfig) (bool, error) {
	switch svc.Kind {
	case config.KindDocker:
		if c.containers == nil {
			return false, nil
		}
		state, err := c.containers.State(ctx, svc.ContainerName())
		if err != nil {
			return false, err
		}
		return state == "running", nil
	case config.KindExe:
		if c.processes == nil {
			return false, nil
		}
		return c.processes.Running(ctx, svc.ProcessName())
	default:
		return false, nil
	}
}

// Start dispatches a start action and returns a human readable message.
func (c *ServiceController) Start(ctx context.Context, id, actor string) (string, error) {
	svc, ok := c.cfg.FindService(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrServiceNotFound, id)
	}

	msg, err := c.start(ctx, svc)
	c.audit.LogServiceAction(actor, "service_start", id, err)
	if err != nil {
		log.Printf("[Controller] Failed to start %s: %v", id, err)
		return "", fmt.Errorf("error starting %s: %w", id, err)
	}

	log.Printf("[Controller] %s (by %s)", msg, actor)
	return msg, nil
}

// Stop dispatches a stop action and returns a human readable message.
func (c *ServiceController) Stop(ctx context.Context, id, actor string) (string, error) {
	svc, ok := c.cfg.FindService(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrServiceNotFound, id)
	}

	msg, err := c.stop(ctx, svc)
	c.audit.LogServiceAction(actor, "service_stop", id, err)
	if err != nil {
		log.Printf("[Controller] Failed to stop %s: %v", id, err)
		return "", fmt.Errorf("error stopping %s: %w", id, err)
	}

	log.Printf("[Controller] %s (by %s)", msg, actor)
	return msg, nil
}

func (c *ServiceController) start(ctx context.Context, svc *config.ServiceConfig) (string, error) {
	switch svc.Kind {
	case config.KindDocker:
		if c.containers == nil {
			return "", errors.New("container runtime unavailable")
		}
		if err := c.containers.Start(ctx, svc.ContainerName()); err != nil {
			return "", err
		}
		return "Started container: " + svc.ContainerName(), nil
	case config.KindExe:
		if err := c.processes.Launch(svc.Start); err != nil {
			return "", err
		}
	case config.KindCommand:
		if err := c.commands.Spawn(svc.Start); err != nil {
			return "", err
		}
	case config.KindService:
		if _, err := c.serviceManager(ctx, "start", svc.UnitName()); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, svc.Kind)
	}
	return "Starting " + svc.ID + "...", nil
}

func (c *ServiceController) stop(ctx context.Context, svc *config.ServiceConfig) (string, error) {
	switch svc.Kind {
	case config.KindDocker:
		if c.containers == nil {
			return "", errors.New("container runtime unavailable")
		}
		if err := c.containers.Stop(ctx, svc.ContainerName(), nil); err != nil {
			return "", err
		}
		return "Stopped container: " + svc.ContainerName(), nil
	case config.KindExe:
		if svc.Stop != "" {
			if _, err := c.commands.Run(ctx, svc.Stop); err != nil {
				return "", err
			}
			break
		}
		if _, err := c.processes.Kill(ctx, svc.ProcessName()); err != nil {
			return "", err
		}
	case config.KindCommand:
		if svc.Stop == "" {
			return "", fmt.Errorf("no stop command configured for %s", svc.ID)
		}
		if _, err := c.commands.Run(ctx, svc.Stop); err != nil {
			return "", err
		}
	case config.KindService:
		if _, err := c.serviceManager(ctx, "stop", svc.UnitName()); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, svc.Kind)
	}
	return "Stopping " + svc.ID + "...", nil
}

func (c *ServiceController) serviceManager(ctx context.Context, action, unit string) (string, error) {
	if c.goos == "windows" {
		return c.commands.Exec(ctx, "sc", action, unit)
	}
	return c.commands.Exec(ctx, "systemctl", action, unit)
}

// StartAll starts every service that is not already up. Failures are
// reported per service and do not abort the batch.
func (c *ServiceController) StartAll(ctx context.Context, actor string) map[string]string {
	return c.batch(ctx, actor, true)
}

// StopAll stops every service that is currently up.
func (c *ServiceController) StopAll(ctx context.Context, actor string) map[string]string {
	return c.batch(ctx, actor, false)
}

func (c *ServiceController) batch(ctx context.Context, actor string, start bool) map[string]string {
	results := make(map[string]string, len(c.cfg.Services))

	for i := range c.cfg.Services {
		svc := &c.cfg.Services[i]
		up := c.Probe(ctx, svc).Up

		var msg string
		var err error
		switch {
		case start && up:
			msg = svc.ID + " already running"
		case !start && !up:
			msg = svc.ID + " already stopped"
		case start:
			msg, err = c.Start(ctx, svc.ID, actor)
		default:
			msg, err = c.Stop(ctx, svc.ID, actor)
		}
		if err != nil {
			msg = err.Error()
		}
		results[svc.ID] = msg
	}

	return results
}
