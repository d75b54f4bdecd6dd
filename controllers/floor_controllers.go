package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/periodic-tables/floor"
	"github.com/yeremiapane/periodic-tables/middlewares"
	"github.com/yeremiapane/periodic-tables/utils"
)

// FloorController serves the host stand websocket.
type FloorController struct {
	Hub      *floor.Hub
	upgrader websocket.Upgrader
}

// NewFloorController accepts upgrades from the configured origins. A "*"
// entry accepts any origin.
func NewFloorController(hub *floor.Hub, allowedOrigins []string) *FloorController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &FloorController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Connect -> GET /ws/floor?token=
func (fc *FloorController) Connect(c *gin.Context) {
	role := c.GetString(middlewares.CtxRole)

	ws, err := fc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Warnf("floor upgrade failed: %v", err)
		return
	}

	fc.Hub.Register(ws, role)
	defer fc.Hub.Unregister(ws)

	// Clients only listen. Reading notices disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}
