// Package middleware provides HTTP middleware for authentication, logging, and rate limiting.
package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

const (
	// ActorContextKey is the key for storing the caller IP in the request context.
	ActorContextKey = "actor"
	// LocalContextKey is set when the caller skipped the password check.
	LocalContextKey = "local"

	// PasswordHeader and OTPHeader carry credentials on requests without a body.
	PasswordHeader = "X-Remote-Password"
	OTPHeader      = "X-Remote-OTP"
)

// Credentials is the JSON body remote callers send with an action.
type Credentials struct {
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// ReadCredentials extracts credentials from the headers or the JSON body.
// The body stays readable for later handlers.
func ReadCredentials(c *gin.Context) Credentials {
	creds := Credentials{
		Password: c.GetHeader(PasswordHeader),
		OTP:      c.GetHeader(OTPHeader),
	}
	if creds.Password != "" {
		return creds
	}

	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		var body Credentials
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
			return body
		}
	}
	return creds
}

// RemoteAuth lets local callers through and requires a valid password (and
// OTP code when enabled) from everyone else.
func RemoteAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		c.Set(ActorContextKey, ip)

		if authService.IsLocal(ip) {
			c.Set(LocalContextKey, true)
			c.Next()
			return
		}

		creds := ReadCredentials(c)
		if err := authService.Authorize(creds.Password, creds.OTP); err != nil {
			log.Printf("[Auth] Rejected %s %s from %s: %v", c.Request.Method, c.Request.URL.Path, ip, err)
			c.String(http.StatusForbidden, "Unauthorized: invalid password")
			c.Abort()
			return
		}

		c.Next()
	}
}

// Actor returns the caller recorded by RemoteAuth, falling back to the client IP.
func Actor(c *gin.Context) string {
	if actor := c.GetString(ActorContextKey); actor != "" {
		return actor
	}
	return c.ClientIP()
}
