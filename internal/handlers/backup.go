package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/middleware"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
	"github.com/pandeptwidyaop/homelab-remote/internal/validation"
)

// BackupHandler exposes backup jobs and their run history.
type BackupHandler struct {
	backupService *services.BackupService
}

// NewBackupHandler creates a new BackupHandler instance.
func NewBackupHandler(backupService *services.BackupService) *BackupHandler {
	return &BackupHandler{
		backupService: backupService,
	}
}

// List returns every configured job with its schedule state.
// GET /api/backups
func (h *BackupHandler) List(c *gin.Context) {
	jobs, err := h.backupService.Jobs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// RunAll starts every job that is not already running.
// POST /api/backups/run
func (h *BackupHandler) RunAll(c *gin.Context) {
	runs := h.backupService.RunAll(middleware.Actor(c))
	c.JSON(http.StatusAccepted, runs)
}

// Run starts one job in the background.
// POST /api/backups/:name/run
func (h *BackupHandler) Run(c *gin.Context) {
	name := c.Param("name")
	if err := validation.ValidateJobName(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.backupService.StartJob(name, middleware.Actor(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "backup job not found"})
		case errors.Is(err, services.ErrJobRunning):
			c.JSON(http.StatusConflict, gin.H{"error": "backup job already running"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// Runs returns run history, optionally filtered by job.
// GET /api/backups/runs?job=notes&limit=50&offset=0
func (h *BackupHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, err := h.backupService.Runs(c.Query("job"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetRun returns a single run.
// GET /api/backups/runs/:id
func (h *BackupHandler) GetRun(c *gin.Context) {
	run, err := h.backupService.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "backup run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}
