package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/metrics"
	"github.com/pandeptwidyaop/homelab-remote/internal/middleware"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

// SystemHandler handles host power and metrics endpoints.
type SystemHandler struct {
	power *services.PowerService
	paths []string
}

// NewSystemHandler creates a new SystemHandler instance. Disk usage is
// reported for the root filesystem and every backup destination.
func NewSystemHandler(power *services.PowerService, cfg *config.Config) *SystemHandler {
	paths := []string{metrics.RootPath()}
	for _, job := range cfg.Backup.Jobs {
		paths = append(paths, job.Destination)
	}
	return &SystemHandler{
		power: power,
		paths: paths,
	}
}

// Shutdown powers off the host after the response is sent.
// POST /shutdown
func (h *SystemHandler) Shutdown(c *gin.Context) {
	h.power.Shutdown(middleware.Actor(c))
	c.String(http.StatusOK, "Shutting down...")
}

// Metrics returns current CPU, memory, disk and load figures.
// GET /api/system/metrics
func (h *SystemHandler) Metrics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	m, err := metrics.GetHostMetrics(ctx, h.paths...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}
