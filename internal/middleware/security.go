package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds security-related HTTP headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// Responses are plain text or JSON, nothing needs to load.
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Status and action responses must never be served from a cache.
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") || path == "/service-status" || c.Request.Method != "GET" {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}

		c.Next()
	}
}
