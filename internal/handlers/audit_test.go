package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pandeptwidyaop/homelab-remote/internal/handlers"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

func TestAuditHandler_List(t *testing.T) {
	f := newFixture(t)
	f.audit.LogServiceAction("192.0.2.1", "service_start", "sonarr", nil)
	f.audit.LogServiceAction("192.0.2.1", "service_stop", "sonarr", errBoom)

	r := newEngine()
	r.GET("/api/audit", handlers.NewAuditHandler(f.audit).List)

	w := perform(r, "GET", "/api/audit?limit=1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var logs []services.AuditLogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(logs))
	}
	if logs[0].Action != "service_stop" || logs[0].Success {
		t.Errorf("expected the failed stop first, got %+v", logs[0])
	}
}

func TestAuditHandler_ListFilters(t *testing.T) {
	f := newFixture(t)
	f.audit.LogServiceAction("192.0.2.1", "service_start", "sonarr", nil)
	f.audit.LogServiceAction("192.0.2.2", "service_stop", "plex", nil)
	f.audit.LogServiceAction("192.0.2.2", "service_start", "plex", nil)

	r := newEngine()
	r.GET("/api/audit", handlers.NewAuditHandler(f.audit).List)

	w := perform(r, "GET", "/api/audit?actor=192.0.2.2&action=service_start", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var logs []services.AuditLogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(logs) != 1 || logs[0].ResourceID != "plex" {
		t.Errorf("expected only the plex start, got %+v", logs)
	}

	w = perform(r, "GET", "/api/audit?limit=abc", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for a bad limit, got %d", w.Code)
	}
}
