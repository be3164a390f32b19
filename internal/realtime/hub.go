package realtime

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jmallard/chessrelay/internal/model"
)

// Hub fans events out to session rooms over websockets. It implements
// Relay; room membership is keyed by connection, so one connection can
// sit in several rooms at once.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[model.GameID]map[Conn]bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms: make(map[model.GameID]map[Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// JoinRoom adds a connection to a session room, creating the room on
// first join. Rejoining is a no-op.
func (h *Hub) JoinRoom(c Conn, id model.GameID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[id]
	if !ok {
		room = make(map[Conn]bool)
		h.rooms[id] = room
	}
	room[c] = true
}

// LeaveRoom drops a connection from a room, discarding the room once
// it empties
func (h *Hub) LeaveRoom(c Conn, id model.GameID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[id]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// ToRoom sends an event to every connection in a room
func (h *Hub) ToRoom(id model.GameID, event ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[id] {
		c.Send(event)
	}
}

// ToRoomExcept sends an event to every connection in a room bar one
func (h *Hub) ToRoomExcept(id model.GameID, except Conn, event ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[id] {
		if c != except {
			c.Send(event)
		}
	}
}

// dropFromAllRooms removes a departing connection everywhere
func (h *Hub) dropFromAllRooms(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket session. The
// connection arrives unauthenticated; identity is established by an
// in-band authenticate event before any other event is honoured.
func (h *Hub) ServeWS(coordinator *Coordinator, identity Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "websocket upgrade failed",
				slog.String("error", err.Error()))
			return
		}

		client := newClient(h, ws, coordinator, identity, h.logger)
		go client.writePump()
		go client.readPump()
	}
}
