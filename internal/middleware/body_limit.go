package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxCredentialBody caps request bodies, which only carry a password and OTP code.
const maxCredentialBody = 4 << 10

// BodySizeLimit rejects request bodies larger than maxBytes. Bodies of
// unknown length are cut off while they are read.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			abortTooLarge(c, maxBytes)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// abortTooLarge answers in JSON on /api routes and in plain text on the
// legacy routes.
func abortTooLarge(c *gin.Context, maxBytes int64) {
	msg := fmt.Sprintf("request body exceeds %d bytes", maxBytes)
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": msg})
		return
	}
	c.String(http.StatusRequestEntityTooLarge, msg)
	c.Abort()
}

// DefaultBodyLimit applies the credential body cap.
func DefaultBodyLimit() gin.HandlerFunc {
	return BodySizeLimit(maxCredentialBody)
}
