// Package floor pushes live table and reservation changes to the host stand
// over websockets.
package floor

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/utils"
)

// Event types
const (
	EventTableUpdate       = "table_update"
	EventTableCreate       = "table_create"
	EventTableDelete       = "table_delete"
	EventReservationCreate = "reservation_create"
	EventReservationUpdate = "reservation_update"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected host client.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

var defaultHub = NewHub()

// Default returns the process-wide hub used by the websocket endpoint.
func Default() *Hub {
	return defaultHub
}

func (h *Hub) Register(conn *websocket.Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = role
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Clients that fail a write are dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("floor: marshal %s: %v", msg.Event, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, role := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Warnf("floor: dropping %s client: %v", role, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *Hub) BroadcastTableUpdate(table models.Table) {
	h.Broadcast(Message{Event: EventTableUpdate, Data: table})
}

func (h *Hub) BroadcastTableCreate(table models.Table) {
	h.Broadcast(Message{Event: EventTableCreate, Data: table})
}

// BroadcastTableDelete only carries the id; the row is already gone.
func (h *Hub) BroadcastTableDelete(tableID uint) {
	h.Broadcast(Message{Event: EventTableDelete, Data: map[string]interface{}{"table_id": tableID}})
}

func (h *Hub) BroadcastReservationCreate(res models.Reservation) {
	h.Broadcast(Message{Event: EventReservationCreate, Data: res})
}

func (h *Hub) BroadcastReservationUpdate(res models.Reservation) {
	h.Broadcast(Message{Event: EventReservationUpdate, Data: res})
}
