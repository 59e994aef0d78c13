package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

// AuditHandler exposes the audit trail of remote actions.
type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

type auditParams struct {
	Actor    string `form:"actor"`
	Action   string `form:"action"`
	Resource string `form:"resource"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// List returns audit logs, newest first.
// GET /api/audit?actor=&action=&resource=&limit=50&offset=0
func (h *AuditHandler) List(c *gin.Context) {
	var p auditParams
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	logs, err := h.audit.Query(services.AuditQuery{
		Actor:        p.Actor,
		Action:       p.Action,
		ResourceType: p.Resource,
		Limit:        p.Limit,
		Offset:       p.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, logs)
}
