package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// contentSecurityPolicy fits the host front end served under /app: its own
// scripts, inline styles, data: icons and the floor websocket.
const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; connect-src 'self' ws: wss:; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

// SecurityHeaders sets browser hardening headers. HSTS is only sent in
// production, where the service sits behind TLS. Admin responses carry
// guest details and are never stored by the browser.
func SecurityHeaders(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		if production {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		if strings.HasPrefix(c.Request.URL.Path, "/admin/") {
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}
