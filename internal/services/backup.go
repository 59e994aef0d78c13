package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/database"
	"github.com/pandeptwidyaop/homelab-remote/internal/models"
)

var (
	ErrJobNotFound = errors.New("backup job not found")
	ErrJobRunning  = errors.New("backup job already running")
	ErrRunNotFound = errors.New("backup run not found")
)

// BackupService runs backup jobs on demand and on a schedule.
type BackupService struct {
	db       *database.DB
	cfg      *config.Config
	commands CommandRunner
	uploader S3Uploader
	audit    *AuditService
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewBackupService creates a new BackupService instance. uploader may be nil
// when no job uploads to S3.
func NewBackupService(db *database.DB, cfg *config.Config, commands CommandRunner, uploader S3Uploader, audit *AuditService) *BackupService {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackupService{
		db:       db,
		cfg:      cfg,
		commands: commands,
		uploader: uploader,
		audit:    audit,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop.
func (s *BackupService) Start() {
	if !s.cfg.Backup.Enabled {
		log.Println("[Backup] Scheduled backups are disabled")
		return
	}
	if len(s.cfg.Backup.Jobs) == 0 {
		log.Println("[Backup] No backup jobs configured")
		return
	}

	interval := s.cfg.Backup.GetCheckInterval()
	log.Printf("[Backup] Starting scheduler (check interval: %v, jobs: %d)", interval, len(s.cfg.Backup.Jobs))

	s.wg.Add(1)
	go s.scheduleLoop(interval)
}

// Stop cancels running jobs and waits for them to exit.
func (s *BackupService) Stop() {
	log.Println("[Backup] Stopping scheduler")
	s.cancel()
	s.wg.Wait()
	log.Println("[Backup] Scheduler stopped")
}

func (s *BackupService) scheduleLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.runDue()

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *BackupService) runDue() {
	for i := range s.cfg.Backup.Jobs {
		job := &s.cfg.Backup.Jobs[i]
		if !s.IsDue(job) {
			continue
		}
		if _, err := s.StartJob(job.Name, "scheduler"); err != nil && !errors.Is(err, ErrJobRunning) {
			log.Printf("[Backup] Failed to start job %q: %v", job.Name, err)
		}
	}
}

// IsDue reports whether job should run now: its destination must be present
// and the last success must be missing or older than the job interval.
func (s *BackupService) IsDue(job *config.BackupJobConfig) bool {
	if _, err := os.Stat(job.Destination); err != nil {
		return false
	}
	if s.isRunning(job.Name) {
		return false
	}

	last, err := s.LastSuccess(job.Name)
	if err != nil {
		log.Printf("[Backup] Error reading last success for %q: %v", job.Name, err)
		return false
	}
	if last == nil {
		return true
	}
	return s.now().Sub(*last) >= job.GetInterval()
}

func (s *BackupService) isRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[name]
}

func (s *BackupService) acquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[name] {
		return false
	}
	s.inFlight[name] = true
	return true
}

func (s *BackupService) release(name string) {
	s.mu.Lock()
	delete(s.inFlight, name)
	s.mu.Unlock()
}

// StartJob runs a job in the background and returns the pending run.
func (s *BackupService) StartJob(name, actor string) (*models.BackupRun, error) {
	job, ok := s.cfg.FindJob(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !s.acquire(name) {
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}

	run, err := s.createRun(job, actor)
	if err != nil {
		s.release(name)
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(name)
		s.execute(s.ctx, job, run)
	}()

	return run, nil
}

// RunJob runs a job synchronously and returns the finished run.
func (s *BackupService) RunJob(ctx context.Context, name, actor string) (*models.BackupRun, error) {
	job, ok := s.cfg.FindJob(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !s.acquire(name) {
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	defer s.release(name)

	run, err := s.createRun(job, actor)
	if err != nil {
		return nil, err
	}
	s.execute(ctx, job, run)
	return s.GetRun(run.ID)
}

// RunAll starts every job that is not already running.
func (s *BackupService) RunAll(actor string) []*models.BackupRun {
	runs := make([]*models.BackupRun, 0, len(s.cfg.Backup.Jobs))
	for _, job := range s.cfg.Backup.Jobs {
		run, err := s.StartJob(job.Name, actor)
		if err != nil {
			log.Printf("[Backup] Skipping job %q: %v", job.Name, err)
			continue
		}
		runs = append(runs, run)
	}
	return runs
}

func (s *BackupService) execute(ctx context.Context, job *config.BackupJobConfig, run *models.BackupRun) {
	log.Printf("[Backup] Running job %q (%s, run %s)", job.Name, job.Mode, run.ID)

	started := s.now().UTC()
	if _, err := s.db.Exec(
		"UPDATE backup_runs SET status = ?, started_at = ? WHERE id = ?",
		models.BackupRunning, started, run.ID,
	); err != nil {
		log.Printf("[Backup] Error marking run %s as running: %v", run.ID, err)
	}

	var message, artifact string
	var err error
	switch job.Mode {
	case config.BackupModeZip:
		message, artifact, err = s.zipBackup(ctx, job)
	default:
		message, err = s.gitBackup(ctx, job)
	}

	status := models.BackupSuccess
	if err != nil {
		status = models.BackupFailed
		message = err.Error()
	}

	if _, dbErr := s.db.Exec(
		"UPDATE backup_runs SET status = ?, message = ?, artifact = ?, finished_at = ? WHERE id = ?",
		status, message, artifact, s.now().UTC(), run.ID,
	); dbErr != nil {
		log.Printf("[Backup] Error finishing run %s: %v", run.ID, dbErr)
	}

	_ = s.audit.Log(AuditLog{
		Actor:        run.Actor,
		Action:       "backup_run",
		ResourceType: "backup",
		ResourceID:   job.Name,
		Success:      err == nil,
		Details: map[string]interface{}{
			"run_id":  run.ID,
			"message": message,
		},
	})

	log.Printf("[Backup] Finished job %q with status=%s: %s", job.Name, status, message)
}

func (s *BackupService) createRun(job *config.BackupJobConfig, actor string) (*models.BackupRun, error) {
	id := uuid.New().String()
	created := s.now().UTC()

	_, err := s.db.Exec(
		"INSERT INTO backup_runs (id, job_name, mode, status, actor, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, job.Name, job.Mode, models.BackupPending, actor, created,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup run: %w", err)
	}

	return &models.BackupRun{
		ID:        id,
		JobName:   job.Name,
		Mode:      job.Mode,
		Status:    models.BackupPending,
		Actor:     actor,
		CreatedAt: created,
	}, nil
}

const runColumns = "id, job_name, mode, status, message, artifact, actor, started_at, finished_at, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.BackupRun, error) {
	var run models.BackupRun
	var message, artifact, actor sql.NullString
	var startedAt, finishedAt sql.NullTime

	if err := row.Scan(
		&run.ID, &run.JobName, &run.Mode, &run.Status, &message, &artifact, &actor,
		&startedAt, &finishedAt, &run.CreatedAt,
	); err != nil {
		return nil, err
	}

	run.Message = message.String
	run.Artifact = artifact.String
	run.Actor = actor.String
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}

// GetRun returns a single run by ID.
func (s *BackupService) GetRun(id string) (*models.BackupRun, error) {
	run, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM backup_runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

// Runs returns run history, newest first. An empty job returns all jobs.
func (s *BackupService) Runs(job string, limit, offset int) ([]models.BackupRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + runColumns + " FROM backup_runs"
	args := []any{}
	if job != "" {
		query += " WHERE job_name = ?"
		args = append(args, job)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]models.BackupRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LastSuccess returns when job last finished successfully, or nil.
func (s *BackupService) LastSuccess(job string) (*time.Time, error) {
	var finished sql.NullTime
	err := s.db.QueryRow(`
		SELECT finished_at FROM backup_runs
		WHERE job_name = ? AND status = ? AND finished_at IS NOT NULL
		ORDER BY finished_at DESC LIMIT 1
	`, job, models.BackupSuccess).Scan(&finished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !finished.Valid {
		return nil, nil
	}
	return &finished.Time, nil
}

// Jobs returns every configured job with its scheduling state.
func (s *BackupService) Jobs() ([]models.BackupJobInfo, error) {
	jobs := make([]models.BackupJobInfo, 0, len(s.cfg.Backup.Jobs))
	for i := range s.cfg.Backup.Jobs {
		job := &s.cfg.Backup.Jobs[i]

		last, err := s.LastSuccess(job.Name)
		if err != nil {
			return nil, err
		}

		info := models.BackupJobInfo{
			Name:        job.Name,
			Sources:     job.AllSources(),
			Destination: job.Destination,
			Mode:        job.Mode,
			Interval:    job.GetInterval().String(),
			Remote:      job.Remote,
			LastSuccess: last,
			Running:     s.isRunning(job.Name),
		}
		if last != nil {
			next := last.Add(job.GetInterval())
			info.NextRun = &next
		}
		jobs = append(jobs, info)
	}
	return jobs, nil
}

// gitBackup mirrors the sources into a git working tree at the destination
// and commits the result.
func (s *BackupService) gitBackup(ctx context.Context, job *config.BackupJobConfig) (string, error) {
	dest := job.Destination
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", fmt.Errorf("failed to create destination: %w", err)
	}

	if _, err := os.Stat(filepath.Join(dest, ".git")); os.IsNotExist(err) {
		if _, err := s.git(ctx, dest, "init"); err != nil {
			return "", err
		}
		if job.Remote != "" {
			if _, err := s.git(ctx, dest, "remote", "add", "origin", job.Remote); err != nil {
				return "", err
			}
		}
	}

	copied := 0
	for _, src := range job.AllSources() {
		n, err := mirrorTopLevel(src, dest)
		if err != nil {
			return "", err
		}
		copied += n
	}
	if copied == 0 {
		return "", errNoFiles
	}

	if _, err := s.git(ctx, dest, "add", "."); err != nil {
		return "", err
	}

	msg := "Auto backup " + s.now().Format("2006-01-02 15:04:05")
	out, err := s.git(ctx, dest, "commit", "-m", msg)
	if err != nil {
		if strings.Contains(out, "nothing to commit") {
			return "Nothing to commit", nil
		}
		return "", err
	}

	if job.Remote != "" {
		if _, err := s.git(ctx, dest, "push", "-u", "origin", job.Branch); err != nil {
			return "", err
		}
		return msg + " pushed to " + job.Branch, nil
	}
	return msg, nil
}

func (s *BackupService) git(ctx context.Context, dir string, args ...string) (string, error) {
	return s.commands.Exec(ctx, "git", append([]string{"-C", dir}, args...)...)
}

// zipBackup writes a timestamped archive of the sources into the destination
// and uploads it when S3 is configured.
func (s *BackupService) zipBackup(ctx context.Context, job *config.BackupJobConfig) (string, string, error) {
	if _, err := os.Stat(job.Destination); err != nil {
		return "", "", fmt.Errorf("destination path does not exist: %s", job.Destination)
	}

	name := "Backup_" + s.now().Format("2006-01-02_15-04-05") + ".zip"
	archive := filepath.Join(job.Destination, name)

	if err := writeZip(archive, job.AllSources()); err != nil {
		return "", "", err
	}

	message := "Backup saved as " + name
	if job.S3.Enabled() {
		if s.uploader == nil {
			return message, archive, errors.New("s3 upload configured but no uploader available")
		}
		location, err := s.uploader.Upload(ctx, job.S3, archive)
		if err != nil {
			return message, archive, fmt.Errorf("upload failed: %w", err)
		}
		message += ", uploaded to " + location
	}
	return message, archive, nil
}
