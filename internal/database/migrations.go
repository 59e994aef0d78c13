package database

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT,
		success BOOLEAN NOT NULL DEFAULT TRUE,
		details TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS service_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service_id TEXT NOT NULL,
		up BOOLEAN NOT NULL,
		port_open BOOLEAN NOT NULL,
		running BOOLEAN NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS backup_runs (
		id TEXT PRIMARY KEY,
		job_name TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		message TEXT,
		artifact TEXT,
		actor TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_service_events_service_id ON service_events(service_id)`,
	`CREATE INDEX IF NOT EXISTS idx_service_events_created_at ON service_events(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_backup_runs_job_name ON backup_runs(job_name)`,
	`CREATE INDEX IF NOT EXISTS idx_backup_runs_status ON backup_runs(status)`,
}

func runMigrations(db *sql.DB) error {
	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
