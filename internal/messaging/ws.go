// Package messaging pushes committed service events to connected parties over
// websockets.
package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/skillflow/internal/events"
)

const writeWait = 5 * time.Second

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Access reports whether account may follow serviceID. found is false when
// the service does not exist.
type Access func(serviceID uint64, account string) (found, allowed bool)

type room struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// Hub fans events out to one room per service.
type Hub struct {
	access Access
	log    *logrus.Logger

	mu    sync.Mutex
	rooms map[uint64]*room
}

func NewHub(access Access, log *logrus.Logger) *Hub {
	return &Hub{access: access, log: log, rooms: make(map[uint64]*room)}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *Hub) room(serviceID uint64) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[serviceID]
	if !ok {
		r = &room{clients: make(map[*websocket.Conn]bool)}
		h.rooms[serviceID] = r
	}
	return r
}

// Publish broadcasts e to everyone following its service.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	h.broadcast(e.ServiceID, wsEvent{Type: string(e.Kind), Data: e})
	return nil
}

// Followers returns the number of open connections for a service.
func (h *Hub) Followers(serviceID uint64) int {
	r := h.room(serviceID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (h *Hub) broadcast(serviceID uint64, evt wsEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Warn("encode websocket event")
		return
	}
	r := h.room(serviceID)
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(r.clients, c)
			_ = c.Close()
		}
	}
}

func (r *room) register(c *websocket.Conn) {
	r.mu.Lock()
	r.clients[c] = true
	r.mu.Unlock()
}

func (r *room) unregister(c *websocket.Conn) {
	r.mu.Lock()
	delete(r.clients, c)
	r.mu.Unlock()
}

// ServiceFeed upgrades to a websocket that streams the service's events to
// its client or provider.
func (h *Hub) ServiceFeed(c echo.Context) error {
	account, ok := c.Get("user_id").(string)
	if !ok || account == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	serviceID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	found, allowed := h.access(serviceID, account)
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this service"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	r := h.room(serviceID)
	r.register(ws)
	h.broadcast(serviceID, wsEvent{Type: "presence_join", Data: echo.Map{"user_id": account}})

	// Server push only; reads just detect disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			r.unregister(ws)
			_ = ws.Close()
			h.broadcast(serviceID, wsEvent{Type: "presence_leave", Data: echo.Map{"user_id": account}})
			return nil
		}
	}
}
