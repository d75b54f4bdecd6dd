package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/utils"
)

// WebSocketAuthMiddleware authenticates upgrade requests with ?token=,
// since browsers cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		// Set role dan user_id ke context
		c.Set(CtxRole, claims.Role)
		c.Set(CtxUserID, claims.UserID)

		c.Next()
	}
}
