package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/homelab-remote/internal/middleware"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// VerifyPassword lets the dashboard check a password before it is reused for actions.
// POST /verify-password
func (h *AuthHandler) VerifyPassword(c *gin.Context) {
	if h.authService.IsLocal(c.ClientIP()) {
		c.String(http.StatusOK, "OK")
		return
	}

	creds := middleware.ReadCredentials(c)
	if creds.Password == "" {
		c.String(http.StatusBadRequest, "No password provided!")
		return
	}

	if err := h.authService.Authorize(creds.Password, creds.OTP); err != nil {
		if errors.Is(err, services.ErrInvalidOTP) {
			c.String(http.StatusForbidden, "Invalid OTP code")
			return
		}
		c.String(http.StatusForbidden, "Incorrect password")
		return
	}

	c.String(http.StatusOK, "OK")
}
