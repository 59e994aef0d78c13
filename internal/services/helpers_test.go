package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeContainers struct {
	mu      sync.Mutex
	states  map[string]string
	started []string
	stopped []string
	err     error
}

func (f *fakeContainers) State(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[name]
	if !ok {
		return "", ErrContainerNotFound
	}
	return state, nil
}

func (f *fakeContainers) Start(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, name)
	return nil
}

func (f *fakeContainers) Stop(ctx context.Context, name string, timeout *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stopped = append(f.stopped, name)
	return nil
}

type fakeProcesses struct {
	mu       sync.Mutex
	running  map[string]bool
	launched []string
	killed   []string
}

func (f *fakeProcesses) Running(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[name], nil
}

func (f *fakeProcesses) Launch(path string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launched = append(f.launched, path)
	return nil
}

func (f *fakeProcesses) Kill(ctx context.Context, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, name)
	return 1, nil
}

type fakeCommands struct {
	mu     sync.Mutex
	runs   []string
	execs  []string
	spawns []string
	// execFn, when set, decides the result of Exec.
	execFn func(name string, args ...string) (string, error)
}

func (f *fakeCommands) Run(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, command)
	return "", nil
}

func (f *fakeCommands) Exec(ctx context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.execs = append(f.execs, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	fn := f.execFn
	f.mu.Unlock()

	if fn != nil {
		return fn(name, args...)
	}
	return "", nil
}

func (f *fakeCommands) Spawn(command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spawns = append(f.spawns, command)
	return nil
}

func (f *fakeCommands) execLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.execs...)
}

// fakePorts is a PortChecker backed by a map of open ports.
type fakePorts struct {
	mu   sync.Mutex
	open map[int]bool
}

func (f *fakePorts) set(port int, open bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[port] = open
}

func (f *fakePorts) check(ctx context.Context, host string, port int, timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[port]
}

func testServices() []config.ServiceConfig {
	return []config.ServiceConfig{
		{ID: "sonarr", Port: 9005, Kind: config.KindDocker},
		{ID: "plex", Port: 32400, Kind: config.KindExe, Start: `C:\Plex\Plex Media Server.exe`, RequireAll: true},
		{ID: "radarr", Port: 7878, Kind: config.KindExe, Start: `C:\Radarr\Radarr.exe`, Stop: "taskkill /IM Radarr.exe /F"},
		{ID: "bazarr", Port: 6767, Kind: config.KindService, Unit: "Bazarr"},
		{ID: "jellyseerr", Port: 5055, Kind: config.KindCommand, Start: "npm start", Stop: "pkill -f jellyseerr"},
	}
}

type controllerFixture struct {
	controller *ServiceController
	containers *fakeContainers
	processes  *fakeProcesses
	commands   *fakeCommands
	ports      *fakePorts
	cfg        *config.Config
}

func newControllerFixture(t *testing.T, audit *AuditService) *controllerFixture {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	cfg.Services = testServices()

	f := &controllerFixture{
		containers: &fakeContainers{states: map[string]string{"sonarr": "exited"}},
		processes:  &fakeProcesses{running: map[string]bool{}},
		commands:   &fakeCommands{},
		ports:      &fakePorts{open: map[int]bool{}},
		cfg:        cfg,
	}
	f.controller = NewServiceController(cfg, f.containers, f.processes, f.commands, audit)
	f.controller.SetPortChecker(f.ports.check)
	f.controller.SetGOOS("linux")
	return f
}
