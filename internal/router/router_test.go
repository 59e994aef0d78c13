package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/database"
	"github.com/pandeptwidyaop/homelab-remote/internal/router"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

type stubContainers struct{}

func (stubContainers) State(ctx context.Context, name string) (string, error) { return "exited", nil }
func (stubContainers) Start(ctx context.Context, name string) error           { return nil }
func (stubContainers) Stop(ctx context.Context, name string, timeout *int) error {
	return nil
}

type stubCommands struct{}

func (stubCommands) Run(ctx context.Context, command string) (string, error) { return "", nil }
func (stubCommands) Spawn(command string) error                                { return nil }
func (stubCommands) Exec(ctx context.Context, name string, args ...string) (string, error) {
	return "", nil
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	// sha256("secret123")
	cfg.Auth.PasswordHash = "fcf730b6d95236ecd3c9fc2d92d7b6b2bb061514961aec041d6c7a7192f592e4"
	cfg.Services = []config.ServiceConfig{{ID: "sonarr", Port: 9005, Kind: config.KindDocker}}

	audit := services.NewAuditService(db)
	auth := services.NewAuthService(cfg, "192.168.1.10")
	controller := services.NewServiceController(cfg, stubContainers{}, nil, stubCommands{}, audit)
	controller.SetPortChecker(func(ctx context.Context, host string, port int, timeout time.Duration) bool {
		return false
	})
	poller := services.NewStatusPoller(db, controller, time.Second)
	backups := services.NewBackupService(db, cfg, stubCommands{}, nil, audit)
	t.Cleanup(backups.Stop)

	return router.New(cfg, router.Services{
		Auth:       auth,
		Controller: controller,
		Poller:     poller,
		Backups:    backups,
		Audit:      audit,
		Power:      services.NewPowerService("true", stubCommands{}, audit),
	})
}

func do(r http.Handler, method, path, body, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/service-status", http.StatusOK},
		{"/api/version", http.StatusOK},
		{"/api/services", http.StatusOK},
		{"/api/backups", http.StatusOK},
		{"/api/backups/runs", http.StatusOK},
		{"/sonarr", http.StatusFound},
		{"/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(r, "GET", tt.path, "", "192.0.2.9:1000", nil)
			if w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestRouter_AuthGate(t *testing.T) {
	r := setupRouter(t)
	const remote = "192.0.2.9:1000"

	w := do(r, "POST", "/start/sonarr", "", remote, nil)
	if w.Code != http.StatusForbidden || w.Body.String() != "Unauthorized: invalid password" {
		t.Errorf("expected 403 for remote caller without password, got %d %q", w.Code, w.Body.String())
	}

	w = do(r, "POST", "/start/sonarr", "", remote, map[string]string{"X-Forwarded-For": "127.0.0.1"})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected X-Forwarded-For to be ignored, got %d", w.Code)
	}

	w = do(r, "POST", "/start/sonarr", `{"password":"secret123"}`, remote, nil)
	if w.Code != http.StatusOK || w.Body.String() != "Started container: sonarr" {
		t.Errorf("expected remote caller with password to succeed, got %d %q", w.Code, w.Body.String())
	}

	w = do(r, "POST", "/stop/sonarr", "", "127.0.0.1:1000", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected local caller to bypass auth, got %d", w.Code)
	}

	w = do(r, "GET", "/api/audit", "", remote, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected audit log to require auth, got %d", w.Code)
	}

	w = do(r, "GET", "/api/audit", "", remote, map[string]string{"X-Remote-Password": "secret123"})
	if w.Code != http.StatusOK {
		t.Errorf("expected header credentials to be accepted, got %d", w.Code)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	r := setupRouter(t)

	w := do(r, "GET", "/service-status", "", "127.0.0.1:1000", nil)
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on every response")
	}
}
