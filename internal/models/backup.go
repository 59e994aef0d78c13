package models

import "time"

// BackupStatus represents the state of a backup run.
type BackupStatus string

const (
	// BackupPending indicates the run is waiting to start.
	BackupPending BackupStatus = "pending"
	// BackupRunning indicates the run is copying files.
	BackupRunning BackupStatus = "running"
	// BackupSuccess indicates the run completed successfully.
	BackupSuccess BackupStatus = "success"
	// BackupFailed indicates the run failed.
	BackupFailed BackupStatus = "failed"
)

// BackupRun represents one execution of a backup job.
type BackupRun struct {
	CreatedAt  time.Time    `json:"created_at"`
	StartedAt  *time.Time   `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at"`
	ID         string       `json:"id"`
	JobName    string       `json:"job_name"`
	Mode       string       `json:"mode"`
	Status     BackupStatus `json:"status"`
	Message    string       `json:"message"`
	Artifact   string       `json:"artifact,omitempty"`
	Actor      string       `json:"actor"`
}

// BackupJobInfo combines a configured job with its scheduling state.
type BackupJobInfo struct {
	LastSuccess *time.Time `json:"last_success"`
	NextRun     *time.Time `json:"next_run"`
	Name        string     `json:"name"`
	Sources     []string   `json:"sources"`
	Destination string     `json:"destination"`
	Mode        string     `json:"mode"`
	Interval    string     `json:"interval"`
	Remote      string     `json:"remote,omitempty"`
	Running     bool       `json:"running"`
}
