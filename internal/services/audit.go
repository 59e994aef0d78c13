package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"strings"

	"github.com/pandeptwidyaop/homelab-remote/internal/database"
)

// AuditService handles audit logging for remote actions.
type AuditService struct {
	db *database.DB
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(db *database.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditLog represents an audit log entry to be recorded.
type AuditLog struct {
	Details      map[string]interface{}
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	Success      bool
}

// Log records an audit log entry. A nil service or database is a no-op.
func (s *AuditService) Log(entry AuditLog) error {
	if s == nil || s.db == nil {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err == nil {
			detailsJSON = string(bytes)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO audit_logs (actor, action, resource_type, resource_id, success, details)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.Actor, entry.Action, entry.ResourceType, entry.ResourceID, entry.Success, detailsJSON)
	if err != nil {
		log.Printf("[Audit] Failed to record %s %s/%s: %v", entry.Action, entry.ResourceType, entry.ResourceID, err)
	}
	return err
}

// LogServiceAction logs a start or stop dispatched to a service.
func (s *AuditService) LogServiceAction(actor, action, serviceID string, err error) {
	entry := AuditLog{
		Actor:        actor,
		Action:       action,
		ResourceType: "service",
		ResourceID:   serviceID,
		Success:      err == nil,
	}
	if err != nil {
		entry.Details = map[string]interface{}{"error": err.Error()}
	}
	_ = s.Log(entry)
}

// AuditLogEntry represents an audit log record from the database.
type AuditLogEntry struct {
	Actor        string `json:"actor"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Details      string `json:"details"`
	CreatedAt    string `json:"created_at"`
	ID           int64  `json:"id"`
	Success      bool   `json:"success"`
}

// AuditQuery filters and pages audit log reads. Empty fields match everything.
type AuditQuery struct {
	Actor        string
	Action       string
	ResourceType string
	Limit        int
	Offset       int
}

const maxAuditPage = 500

// GetLogs retrieves audit logs with pagination.
func (s *AuditService) GetLogs(limit, offset int) ([]AuditLogEntry, error) {
	return s.Query(AuditQuery{Limit: limit, Offset: offset})
}

// Query returns matching audit logs, newest first.
func (s *AuditService) Query(q AuditQuery) ([]AuditLogEntry, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > maxAuditPage {
		q.Limit = maxAuditPage
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	query := "SELECT id, actor, action, resource_type, resource_id, success, details, created_at FROM audit_logs"
	var where []string
	var args []any
	for _, f := range []struct{ column, value string }{
		{"actor", q.Actor},
		{"action", q.Action},
		{"resource_type", q.ResourceType},
	} {
		if f.value != "" {
			where = append(where, f.column+" = ?")
			args = append(args, f.value)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]AuditLogEntry, 0)
	for rows.Next() {
		var entry AuditLogEntry
		var resourceID, details sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.Actor,
			&entry.Action,
			&entry.ResourceType,
			&resourceID,
			&entry.Success,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.ResourceID = resourceID.String
		entry.Details = details.String

		logs = append(logs, entry)
	}

	return logs, rows.Err()
}
