// Package handlers provides HTTP request handlers for the legacy routes and the JSON API.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/middleware"
	"github.com/pandeptwidyaop/homelab-remote/internal/models"
	"github.com/pandeptwidyaop/homelab-remote/internal/probe"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
	"github.com/pandeptwidyaop/homelab-remote/internal/validation"
)

// ServiceHandler serves service status and start/stop actions.
type ServiceHandler struct {
	controller *services.ServiceController
	poller     *services.StatusPoller
	serverIP   string
}

// NewServiceHandler creates a new ServiceHandler instance.
func NewServiceHandler(controller *services.ServiceController, poller *services.StatusPoller, serverIP string) *ServiceHandler {
	return &ServiceHandler{
		controller: controller,
		poller:     poller,
		serverIP:   serverIP,
	}
}

// Status returns id -> up for every service.
// GET /service-status
func (h *ServiceHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.poller.Snapshot())
}

// Redirect sends the browser to the service's own web UI.
// GET /:service
func (h *ServiceHandler) Redirect(c *gin.Context) {
	id := c.Param("service")
	svc, ok := h.controller.Find(id)
	if !ok {
		c.String(http.StatusNotFound, "Service '%s' not found", id)
		return
	}

	host := h.serverIP
	ip := c.ClientIP()
	if probe.IsLoopback(ip) || ip == h.serverIP {
		host = "localhost"
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("http://%s:%d", host, svc.Port))
}

// Start starts a service and answers in plain text.
// POST /start/:service
func (h *ServiceHandler) Start(c *gin.Context) {
	h.legacyAction(c, "starting", h.controller.Start)
}

// Stop stops a service and answers in plain text.
// POST /stop/:service
func (h *ServiceHandler) Stop(c *gin.Context) {
	h.legacyAction(c, "stopping", h.controller.Stop)
}

type actionFunc func(ctx context.Context, id, actor string) (string, error)

func (h *ServiceHandler) legacyAction(c *gin.Context, verb string, action actionFunc) {
	id := c.Param("service")
	if validation.ValidateServiceID(id) != nil {
		c.String(http.StatusNotFound, "Unknown service '%s'", id)
		return
	}

	msg, err := action(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		if errors.Is(err, services.ErrServiceNotFound) {
			c.String(http.StatusNotFound, "Unknown service '%s'", id)
			return
		}
		c.String(http.StatusInternalServerError, "Error %s %s: %v", verb, id, cause(err))
		return
	}

	h.refresh()
	c.String(http.StatusOK, msg)
}

// StartAll starts every service that is down.
// POST /start-all
func (h *ServiceHandler) StartAll(c *gin.Context) {
	results := h.controller.StartAll(c.Request.Context(), middleware.Actor(c))
	h.refresh()
	c.JSON(http.StatusOK, results)
}

// StopAll stops every service that is up.
// POST /stop-all
func (h *ServiceHandler) StopAll(c *gin.Context) {
	results := h.controller.StopAll(c.Request.Context(), middleware.Actor(c))
	h.refresh()
	c.JSON(http.StatusOK, results)
}

// refresh re-polls in the background so the next status read reflects the action.
func (h *ServiceHandler) refresh() {
	go h.poller.Refresh(context.Background())
}

// cause strips the controller's "error starting x" wrapper.
func cause(err error) error {
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	return err
}

// List returns every service with its latest status.
// GET /api/services
func (h *ServiceHandler) List(c *gin.Context) {
	svcs := h.controller.Services()
	views := make([]models.ServiceView, 0, len(svcs))
	for i := range svcs {
		views = append(views, h.view(&svcs[i]))
	}
	c.JSON(http.StatusOK, views)
}

// Get returns one service with its latest status.
// GET /api/services/:id
func (h *ServiceHandler) Get(c *gin.Context) {
	svc, ok := h.controller.Find(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	c.JSON(http.StatusOK, h.view(svc))
}

func (h *ServiceHandler) view(svc *config.ServiceConfig) models.ServiceView {
	v := models.ServiceView{
		ID:          svc.ID,
		Name:        svc.DisplayName(),
		Description: svc.Description,
		Image:       svc.Image,
		Kind:        svc.Kind,
		Port:        svc.Port,
		ServerIP:    h.serverIP,
		URL:         fmt.Sprintf("http://%s:%d", h.serverIP, svc.Port),
		Status:      "unknown",
	}
	if s, ok := h.poller.Status(svc.ID); ok {
		v.Up = s.Up
		if s.Up {
			v.Status = "running"
		} else {
			v.Status = "stopped"
		}
	}
	return v
}

// APIStart starts a service.
// POST /api/services/:id/start
func (h *ServiceHandler) APIStart(c *gin.Context) {
	h.apiAction(c, h.controller.Start)
}

// APIStop stops a service.
// POST /api/services/:id/stop
func (h *ServiceHandler) APIStop(c *gin.Context) {
	h.apiAction(c, h.controller.Stop)
}

func (h *ServiceHandler) apiAction(c *gin.Context, action actionFunc) {
	id := c.Param("id")
	if validation.ValidateServiceID(id) != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}

	msg, err := action(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		if errors.Is(err, services.ErrServiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.refresh()
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// Events returns recent up/down transitions of a service.
// GET /api/services/:id/events?limit=50
func (h *ServiceHandler) Events(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.controller.Find(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.poller.Events(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}
