package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP    = "default-src 'none'; frame-ancestors 'none'"
	uploadCSP = "default-src 'none'; img-src 'self'; sandbox"
	hstsValue = "max-age=31536000; includeSubDomains"
)

// SecurityHeaders sets response hardening headers. Uploaded images are
// served cross-origin so a separately hosted frontend can render them,
// while API responses stay same-origin and uncacheable. HSTS is only sent
// when hsts is true, i.e. outside local development.
func SecurityHeaders(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
			h.Set("Content-Security-Policy", uploadCSP)
			h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		} else {
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			h.Set("Cache-Control", "no-store")
		}

		if hsts {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		c.Next()
	}
}
