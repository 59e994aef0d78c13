package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/handlers"
	"github.com/pandeptwidyaop/homelab-remote/internal/models"
)

func setupServiceRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	f := newFixture(t)
	h := handlers.NewServiceHandler(f.controller, f.poller, testServerIP)

	r := newEngine()
	r.GET("/service-status", h.Status)
	r.POST("/start-all", h.StartAll)
	r.POST("/stop-all", h.StopAll)
	r.POST("/start/:service", h.Start)
	r.POST("/stop/:service", h.Stop)
	r.GET("/:service", h.Redirect)

	api := r.Group("/api/services")
	api.GET("", h.List)
	api.GET("/:id", h.Get)
	api.POST("/:id/start", h.APIStart)
	api.POST("/:id/stop", h.APIStop)
	api.GET("/:id/events", h.Events)
	return r, f
}

func TestServiceHandler_Status(t *testing.T) {
	r, f := setupServiceRouter(t)
	f.ports.open[9005] = true
	f.poller.Refresh(context.Background())

	w := perform(r, "GET", "/service-status", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var got map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !got["sonarr"] {
		t.Error("expected sonarr to be up")
	}
	if up, ok := got["plex"]; !ok || up {
		t.Errorf("expected plex to be reported down, got %v (present=%v)", up, ok)
	}
}

func TestServiceHandler_Redirect(t *testing.T) {
	r, _ := setupServiceRouter(t)

	tests := []struct {
		name       string
		path       string
		remoteAddr string
		wantCode   int
		wantTarget string
	}{
		{"remote caller", "/sonarr", "192.0.2.50:4000", http.StatusFound, "http://192.168.1.10:9005"},
		{"loopback caller", "/sonarr", "127.0.0.1:4000", http.StatusFound, "http://localhost:9005"},
		{"server ip caller", "/plex", testServerIP + ":4000", http.StatusFound, "http://localhost:32400"},
		{"unknown service", "/nope", "192.0.2.50:4000", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, "GET", tt.path, "", tt.remoteAddr)
			if w.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantTarget != "" && w.Header().Get("Location") != tt.wantTarget {
				t.Errorf("expected redirect to %s, got %s", tt.wantTarget, w.Header().Get("Location"))
			}
			if tt.wantCode == http.StatusNotFound && w.Body.String() != "Service 'nope' not found" {
				t.Errorf("unexpected body %q", w.Body.String())
			}
		})
	}
}

func TestServiceHandler_LegacyStartStop(t *testing.T) {
	r, f := setupServiceRouter(t)

	w := perform(r, "POST", "/start/sonarr", "", "")
	if w.Code != http.StatusOK || w.Body.String() != "Started container: sonarr" {
		t.Errorf("unexpected start response %d %q", w.Code, w.Body.String())
	}

	w = perform(r, "POST", "/stop/plex", "", "")
	if w.Code != http.StatusOK || w.Body.String() != "Stopping plex..." {
		t.Errorf("unexpected stop response %d %q", w.Code, w.Body.String())
	}

	w = perform(r, "POST", "/start/nope", "", "")
	if w.Code != http.StatusNotFound || w.Body.String() != "Unknown service 'nope'" {
		t.Errorf("unexpected unknown response %d %q", w.Code, w.Body.String())
	}

	w = perform(r, "POST", "/start/Bad%20ID", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for invalid id, got %d", w.Code)
	}

	f.containers.mu.Lock()
	f.containers.err = errBoom
	f.containers.mu.Unlock()

	w = perform(r, "POST", "/start/sonarr", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if w.Body.String() != "Error starting sonarr: boom" {
		t.Errorf("unexpected error body %q", w.Body.String())
	}
}

func TestServiceHandler_StartAllStopAll(t *testing.T) {
	r, f := setupServiceRouter(t)
	f.ports.open[32400] = true
	f.containers.states["sonarr"] = "exited"

	w := perform(r, "POST", "/start-all", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var results map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if results["sonarr"] != "Started container: sonarr" {
		t.Errorf("unexpected sonarr result %q", results["sonarr"])
	}
	// plex requires the process as well as the port, so it counts as down.
	if results["plex"] != "Starting plex..." {
		t.Errorf("unexpected plex result %q", results["plex"])
	}

	w = perform(r, "POST", "/stop-all", "", "")
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if results["sonarr"] != "sonarr already stopped" {
		t.Errorf("unexpected sonarr result %q", results["sonarr"])
	}
}

func TestServiceHandler_List(t *testing.T) {
	r, f := setupServiceRouter(t)

	w := perform(r, "GET", "/api/services", "", "")
	var views []models.ServiceView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(views) != 2 || views[0].Status != "unknown" {
		t.Fatalf("expected unknown statuses before the first poll, got %+v", views)
	}

	f.ports.open[9005] = true
	f.poller.Refresh(context.Background())

	w = perform(r, "GET", "/api/services", "", "")
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	sonarr := views[0]
	if sonarr.ID != "sonarr" || sonarr.Name != "Sonarr" || !sonarr.Up || sonarr.Status != "running" {
		t.Errorf("unexpected sonarr view %+v", sonarr)
	}
	if sonarr.URL != "http://192.168.1.10:9005" || sonarr.ServerIP != testServerIP {
		t.Errorf("unexpected sonarr url %q / server ip %q", sonarr.URL, sonarr.ServerIP)
	}
	if views[1].Name != "plex" || views[1].Status != "stopped" {
		t.Errorf("unexpected plex view %+v", views[1])
	}
}

func TestServiceHandler_Get(t *testing.T) {
	r, _ := setupServiceRouter(t)

	w := perform(r, "GET", "/api/services/sonarr", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = perform(r, "GET", "/api/services/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestServiceHandler_APIActions(t *testing.T) {
	r, f := setupServiceRouter(t)

	w := perform(r, "POST", "/api/services/sonarr/start", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["message"] != "Started container: sonarr" {
		t.Errorf("unexpected message %q", resp["message"])
	}

	w = perform(r, "POST", "/api/services/nope/stop", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	f.containers.mu.Lock()
	f.containers.err = errBoom
	f.containers.mu.Unlock()

	w = perform(r, "POST", "/api/services/sonarr/stop", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["error"] != "error stopping sonarr: boom" {
		t.Errorf("unexpected error %q", resp["error"])
	}
}

func TestServiceHandler_Events(t *testing.T) {
	r, f := setupServiceRouter(t)
	f.poller.Refresh(context.Background())
	f.ports.open[9005] = true
	f.poller.Refresh(context.Background())

	w := perform(r, "GET", "/api/services/sonarr/events?limit=10", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var events []models.ServiceEvent
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !events[0].Up {
		t.Error("expected newest event first")
	}

	w = perform(r, "GET", "/api/services/nope/events", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}
