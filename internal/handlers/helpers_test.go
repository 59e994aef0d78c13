package handlers_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/database"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

const (
	testServerIP = "192.168.1.10"
	testPassword = "secret123"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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
	err     error
}

func (f *fakeContainers) State(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[name]
	if !ok {
		return "", services.ErrContainerNotFound
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
	return f.err
}

type fakeProcesses struct{}

func (fakeProcesses) Running(ctx context.Context, name string) (bool, error) { return false, nil }
func (fakeProcesses) Launch(path string, args ...string) error            { return nil }
func (fakeProcesses) Kill(ctx context.Context, name string) (int, error)   { return 1, nil }

// fakeCommands records commands. Exec blocks while block is open.
type fakeCommands struct {
	mu    sync.Mutex
	runs  []string
	execs []string
	block chan struct{}
}

func (f *fakeCommands) Run(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	f.runs = append(f.runs, command)
	f.mu.Unlock()
	return "", nil
}

func (f *fakeCommands) Exec(ctx context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.execs = append(f.execs, name+" "+strings.Join(args, " "))
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", nil
}

func (f *fakeCommands) Spawn(command string) error {
	f.mu.Lock()
	f.runs = append(f.runs, command)
	f.mu.Unlock()
	return nil
}

func (f *fakeCommands) Runs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

type fakePorts struct {
	mu   sync.Mutex
	open map[int]bool
}

func (f *fakePorts) check(ctx context.Context, host string, port int, timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[port]
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

type fixture struct {
	cfg        *config.Config
	db         *database.DB
	containers *fakeContainers
	commands   *fakeCommands
	ports      *fakePorts
	audit      *services.AuditService
	auth       *services.AuthService
	controller *services.ServiceController
	poller     *services.StatusPoller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	cfg.Auth.PasswordHash = sha256Hex(testPassword)
	cfg.Services = []config.ServiceConfig{
		{ID: "sonarr", Name: "Sonarr", Description: "TV", Port: 9005, Kind: config.KindDocker},
		{ID: "plex", Port: 32400, Kind: config.KindExe, Start: "/opt/plex/Plex Media Server", RequireAll: true},
	}

	f := &fixture{
		cfg:        cfg,
		db:         newTestDB(t),
		containers: &fakeContainers{states: map[string]string{"sonarr": "exited"}},
		commands:   &fakeCommands{},
		ports:      &fakePorts{open: map[int]bool{}},
	}
	f.audit = services.NewAuditService(f.db)
	f.auth = services.NewAuthService(cfg, testServerIP)
	f.controller = services.NewServiceController(cfg, f.containers, fakeProcesses{}, f.commands, f.audit)
	f.controller.SetPortChecker(f.ports.check)
	f.controller.SetGOOS("linux")
	f.poller = services.NewStatusPoller(f.db, f.controller, time.Second)
	return f
}

func perform(r http.Handler, method, path, body, remoteAddr string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newEngine() *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	return r
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

var errBoom = errors.New("boom")
